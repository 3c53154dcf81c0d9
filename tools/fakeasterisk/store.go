package main

import "sync"

// userTable holds the credential pairs accepted at login. An empty table is
// permissive: any username and secret pass.
type userTable struct {
	mu    sync.RWMutex
	users map[string]string
}

func newUserTable() userTable {
	return userTable{users: make(map[string]string)}
}

func (table *userTable) add(username string, secret string) {
	table.mu.Lock()
	table.users[username] = secret
	table.mu.Unlock()
}

func (table *userTable) permissive() bool {
	table.mu.RLock()
	defer table.mu.RUnlock()
	return len(table.users) == 0
}

func (table *userTable) secretFor(username string) (string, bool) {
	table.mu.RLock()
	defer table.mu.RUnlock()
	secret, known := table.users[username]
	return secret, known
}

func (table *userTable) verify(username string, secret string) bool {
	table.mu.RLock()
	defer table.mu.RUnlock()
	if len(table.users) == 0 {
		return true
	}
	expected, known := table.users[username]
	return known && secret == expected
}

// varStore is the global and per-channel variable table behind GetVar and
// SetVar. Channel-scoped variables key on "channel\x00name".
type varStore struct {
	mu   sync.RWMutex
	vars map[string]string
}

func newVarStore() *varStore {
	return &varStore{vars: make(map[string]string)}
}

func varKey(channel string, name string) string {
	return channel + "\x00" + name
}

func (store *varStore) set(channel string, name string, value string) {
	store.mu.Lock()
	store.vars[varKey(channel, name)] = value
	store.mu.Unlock()
}

func (store *varStore) get(channel string, name string) (string, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	value, exists := store.vars[varKey(channel, name)]
	return value, exists
}

// dbStore is the in-memory AstDB: family/key pairs with subtree deletion.
type dbStore struct {
	mu       sync.RWMutex
	families map[string]map[string]string
}

func newDBStore() *dbStore {
	return &dbStore{families: make(map[string]map[string]string)}
}

func (store *dbStore) put(family string, key string, value string) {
	store.mu.Lock()
	defer store.mu.Unlock()
	entries, exists := store.families[family]
	if !exists {
		entries = make(map[string]string)
		store.families[family] = entries
	}
	entries[key] = value
}

func (store *dbStore) get(family string, key string) (string, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	value, exists := store.families[family][key]
	return value, exists
}

func (store *dbStore) del(family string, key string) bool {
	store.mu.Lock()
	defer store.mu.Unlock()
	entries, exists := store.families[family]
	if !exists {
		return false
	}
	if _, present := entries[key]; !present {
		return false
	}
	delete(entries, key)
	if len(entries) == 0 {
		delete(store.families, family)
	}
	return true
}

// delTree removes a whole family, or the keys under a key prefix when one
// is given. It returns the number of entries removed.
func (store *dbStore) delTree(family string, keyPrefix string) int {
	store.mu.Lock()
	defer store.mu.Unlock()

	entries, exists := store.families[family]
	if !exists {
		return 0
	}

	if keyPrefix == "" {
		removed := len(entries)
		delete(store.families, family)
		return removed
	}

	removed := 0
	for key := range entries {
		if key == keyPrefix || len(key) > len(keyPrefix) && key[:len(keyPrefix)+1] == keyPrefix+"/" {
			delete(entries, key)
			removed++
		}
	}
	if len(entries) == 0 {
		delete(store.families, family)
	}
	return removed
}
