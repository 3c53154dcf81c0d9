package main

import (
	"bufio"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"log"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// managerServer is the shared state behind every connection: the credential
// table, the global variable store, the AstDB, and the registry of live
// sessions used for event fanout.
type managerServer struct {
	version    string
	requireMD5 bool
	latency    time.Duration
	logConn    bool

	users userTable
	vars  *varStore
	astdb *dbStore

	mu       sync.Mutex
	sessions map[*managerConn]struct{}

	accepted atomic.Uint64
}

func newManagerServer(version string) *managerServer {
	return &managerServer{
		version:  version,
		users:    newUserTable(),
		vars:     newVarStore(),
		astdb:    newDBStore(),
		sessions: make(map[*managerConn]struct{}),
	}
}

// configureAuth loads "user:secret" pairs. An empty spec leaves the table
// permissive: any login succeeds.
func (server *managerServer) configureAuth(userSecretPairs string) {
	for _, pair := range strings.Split(userSecretPairs, ",") {
		if username, secret, found := strings.Cut(pair, ":"); found {
			server.users.add(username, secret)
			log.Printf("fakeasterisk: auth user registered: %s", username)
		}
	}
}

// managerConn is one client session. The write lock keeps responses and
// fanned-out events from interleaving mid-message.
type managerConn struct {
	conn          net.Conn
	writeMu       sync.Mutex
	authenticated bool
	challenge     string
	username      string
	eventMask     string
}

func (mc *managerConn) write(raw string) {
	mc.writeMu.Lock()
	_, _ = mc.conn.Write([]byte(raw))
	mc.writeMu.Unlock()
}

// writeMessage sends one field block terminated by a blank line. The
// request's ActionID, when present, is echoed back.
func (mc *managerConn) writeMessage(actionID string, fields ...string) {
	var payload strings.Builder
	for _, line := range fields {
		payload.WriteString(line)
		payload.WriteString("\r\n")
	}
	if actionID != "" {
		payload.WriteString("ActionID: " + actionID + "\r\n")
	}
	payload.WriteString("\r\n")
	mc.write(payload.String())
}

func (mc *managerConn) success(actionID string, fields ...string) {
	mc.writeMessage(actionID, append([]string{"Response: Success"}, fields...)...)
}

func (mc *managerConn) failure(actionID string, reason string) {
	mc.writeMessage(actionID, "Response: Error", "Message: "+reason)
}

func newChallenge() string {
	buffer := make([]byte, 8)
	_, _ = rand.Read(buffer)
	return hex.EncodeToString(buffer)
}

func (server *managerServer) register(mc *managerConn) {
	server.mu.Lock()
	server.sessions[mc] = struct{}{}
	server.mu.Unlock()
}

func (server *managerServer) unregister(mc *managerConn) {
	server.mu.Lock()
	delete(server.sessions, mc)
	server.mu.Unlock()
}

// broadcast fans one event block out to every authenticated session.
func (server *managerServer) broadcast(fields ...string) {
	server.mu.Lock()
	sessions := make([]*managerConn, 0, len(server.sessions))
	for mc := range server.sessions {
		if mc.authenticated && mc.eventMask != "off" {
			sessions = append(sessions, mc)
		}
	}
	server.mu.Unlock()

	for _, mc := range sessions {
		mc.writeMessage("", fields...)
	}
}

func (server *managerServer) runEventGenerator(interval time.Duration, eventName string) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	sequence := 0
	for range ticker.C {
		sequence++
		server.broadcast("Event: "+eventName, "Sequence: "+strconv.Itoa(sequence))
	}
}

// serveConnection is the per-session reader: it writes the banner, then
// assembles blank-line-terminated action blocks and dispatches each one.
func (server *managerServer) serveConnection(conn net.Conn) {
	server.accepted.Add(1)
	remoteAddr := conn.RemoteAddr().String()
	if server.logConn {
		log.Printf("fakeasterisk: connected  %s  (total=%d)", remoteAddr, server.accepted.Load())
	}

	mc := &managerConn{conn: conn, eventMask: "on"}
	server.register(mc)
	defer func() {
		server.unregister(mc)
		_ = conn.Close()
		if server.logConn {
			log.Printf("fakeasterisk: disconnected  %s", remoteAddr)
		}
	}()

	mc.write("Asterisk Call Manager/" + server.version + "\r\n")

	scanner := bufio.NewScanner(conn)
	action := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line != "" {
			if name, value, found := strings.Cut(line, ":"); found {
				action[strings.ToLower(name)] = strings.TrimLeft(value, " ")
			}
			continue
		}
		if len(action) == 0 {
			continue
		}
		if server.latency > 0 {
			time.Sleep(server.latency)
		}
		if !server.dispatch(mc, action) {
			return
		}
		action = make(map[string]string)
	}
}

// dispatch handles one action block. It reports false when the session
// should end (Logoff).
func (server *managerServer) dispatch(mc *managerConn, action map[string]string) bool {
	name := strings.ToLower(action["action"])
	actionID := action["actionid"]

	if !mc.authenticated && name != "login" && name != "challenge" {
		mc.failure(actionID, "Permission denied")
		return true
	}

	switch name {
	case "challenge":
		if !strings.EqualFold(action["authtype"], "MD5") {
			mc.failure(actionID, "Authentication type not supported")
			return true
		}
		mc.challenge = newChallenge()
		mc.success(actionID, "Challenge: "+mc.challenge)

	case "login":
		server.handleLogin(mc, actionID, action)

	case "logoff":
		mc.writeMessage(actionID, "Response: Goodbye", "Message: Thanks for all the fish.")
		return false

	case "ping":
		mc.success(actionID, "Ping: Pong", "Timestamp: "+strconv.FormatInt(time.Now().Unix(), 10))

	case "events":
		mask := strings.ToLower(action["eventmask"])
		if mask == "" {
			mc.failure(actionID, "EventMask required")
			return true
		}
		mc.eventMask = mask
		if mask == "off" {
			mc.success(actionID, "Events: Off")
		} else {
			mc.success(actionID, "Events: On")
		}

	case "getvar":
		variable := action["variable"]
		if variable == "" {
			mc.failure(actionID, "No variable specified")
			return true
		}
		value, _ := server.vars.get(action["channel"], variable)
		mc.success(actionID, "Variable: "+variable, "Value: "+value)

	case "setvar":
		variable := action["variable"]
		if variable == "" {
			mc.failure(actionID, "No variable specified")
			return true
		}
		server.vars.set(action["channel"], variable, action["value"])
		mc.success(actionID, "Message: Variable Set")

	case "dbget":
		value, exists := server.astdb.get(action["family"], action["key"])
		if !exists {
			mc.failure(actionID, "Database entry not found")
			return true
		}
		mc.success(actionID,
			"Event: DBGetResponse",
			"Family: "+action["family"],
			"Key: "+action["key"],
			"Val: "+value)

	case "dbput":
		server.astdb.put(action["family"], action["key"], action["val"])
		mc.success(actionID, "Message: Updated database successfully")

	case "dbdel":
		if !server.astdb.del(action["family"], action["key"]) {
			mc.failure(actionID, "Database entry not found")
			return true
		}
		mc.success(actionID, "Message: Key deleted successfully")

	case "dbdeltree":
		removed := server.astdb.delTree(action["family"], action["key"])
		if removed == 0 {
			mc.failure(actionID, "Database entry not found")
			return true
		}
		mc.success(actionID, "Message: Key tree deleted successfully")

	case "command":
		server.handleCommand(mc, actionID, action["command"])

	case "coresettings":
		mc.success(actionID,
			"AMIversion: "+server.version,
			"AsteriskVersion: 18.0.0",
			"CoreMaxCalls: 0",
			"CoreRealTimeEnabled: No")

	case "corestatus":
		mc.success(actionID,
			"CoreStartupDate: 2026-01-01",
			"CoreStartupTime: 00:00:00",
			"CoreCurrentCalls: 0")

	case "listcommands":
		mc.success(actionID, supportedActionFields()...)

	case "userevent":
		eventName := action["userevent"]
		if eventName == "" {
			mc.failure(actionID, "UserEvent required")
			return true
		}
		fields := []string{"Event: UserEvent" + eventName}
		names := make([]string, 0, len(action))
		for field := range action {
			if field == "action" || field == "actionid" || field == "userevent" {
				continue
			}
			names = append(names, field)
		}
		sort.Strings(names)
		for _, field := range names {
			fields = append(fields, field+": "+action[field])
		}
		mc.success(actionID)
		server.broadcast(fields...)

	default:
		mc.failure(actionID, "Invalid/unknown command: "+action["action"])
	}

	return true
}

func (server *managerServer) handleLogin(mc *managerConn, actionID string, action map[string]string) {
	username := action["username"]

	var ok bool
	switch {
	case action["key"] != "":
		if mc.challenge == "" {
			mc.failure(actionID, "Challenge not issued")
			return
		}
		secret, known := server.users.secretFor(username)
		if !known && server.users.permissive() {
			// Permissive mode cannot verify a digest it has no secret for;
			// accept the login outright.
			ok = true
			break
		}
		digest := md5.Sum([]byte(mc.challenge + secret))
		ok = known && action["key"] == hex.EncodeToString(digest[:])

	case server.requireMD5:
		mc.failure(actionID, "Authentication type not allowed")
		return

	default:
		ok = server.users.verify(username, action["secret"])
	}

	if !ok {
		log.Printf("fakeasterisk: auth failed for user=%q", username)
		mc.failure(actionID, "Authentication failed")
		return
	}

	mc.authenticated = true
	mc.username = username
	mc.success(actionID, "Message: Authentication accepted")
	mc.writeMessage("", "Event: FullyBooted", "Privilege: system,all", "Status: Fully Booted")
}

// handleCommand frames CLI output as a Follows response with free-text
// lines terminated by the end marker.
func (server *managerServer) handleCommand(mc *managerConn, actionID string, command string) {
	var output []string
	switch command {
	case "core show version":
		output = []string{"Asterisk 18.0.0 built on fakeasterisk"}
	case "core show uptime":
		output = []string{"System uptime: 1 hour, 23 minutes"}
	case "":
		mc.failure(actionID, "Command required")
		return
	default:
		output = []string{"No such command '" + command + "'"}
	}

	lines := []string{"Response: Follows", "Privilege: Command"}
	lines = append(lines, output...)
	lines = append(lines, "--END COMMAND--")
	mc.writeMessage(actionID, lines...)
}

func supportedActionFields() []string {
	names := []string{
		"Challenge", "Command", "CoreSettings", "CoreStatus", "DBDel",
		"DBDelTree", "DBGet", "DBPut", "Events", "GetVar", "ListCommands",
		"Login", "Logoff", "Ping", "SetVar", "UserEvent",
	}
	fields := make([]string, 0, len(names))
	for _, name := range names {
		fields = append(fields, name+": supported")
	}
	return fields
}
