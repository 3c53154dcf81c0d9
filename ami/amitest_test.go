package ami

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"net"
	"strings"
	"sync"
	"testing"
)

// fakeManager is a minimal in-test AMI server: it speaks the banner, the
// plaintext and MD5 challenge login, Ping, and Logoff, and echoes any other
// action's fields back under the request's ActionID. Raw byte scripts can
// be attached per action name, and events can be broadcast to connected
// clients.
type fakeManager struct {
	t        *testing.T
	listener net.Listener
	username string
	secret   string
	chal     string

	wg sync.WaitGroup

	mu       sync.Mutex
	conns    []net.Conn
	accepted int
	raw      map[string]string // action name (lowercase) -> verbatim response bytes
	silent   map[string]bool   // action names (lowercase) to never answer
}

func startFakeManager(t *testing.T) *fakeManager {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start fake manager: %v", err)
	}

	server := &fakeManager{
		t:        t,
		listener: listener,
		username: "admin",
		secret:   "s3cret",
		chal:     "abc123",
		raw:      make(map[string]string),
		silent:   make(map[string]bool),
	}

	server.wg.Add(1)
	go server.acceptLoop()

	return server
}

func (server *fakeManager) Addr() string { return server.listener.Addr().String() }

// Accepted reports how many connections the server has seen.
func (server *fakeManager) Accepted() int {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.accepted
}

// ScriptRaw makes the server answer the named action with verbatim bytes.
func (server *fakeManager) ScriptRaw(action string, response string) {
	server.mu.Lock()
	server.raw[strings.ToLower(action)] = response
	server.mu.Unlock()
}

// Silence makes the server swallow the named action without answering.
func (server *fakeManager) Silence(action string) {
	server.mu.Lock()
	server.silent[strings.ToLower(action)] = true
	server.mu.Unlock()
}

// Broadcast writes raw bytes to every connected client.
func (server *fakeManager) Broadcast(raw string) {
	server.mu.Lock()
	conns := make([]net.Conn, len(server.conns))
	copy(conns, server.conns)
	server.mu.Unlock()

	for _, conn := range conns {
		_, _ = conn.Write([]byte(raw))
	}
}

// dropConnections severs every established connection but keeps listening.
func (server *fakeManager) dropConnections() {
	server.mu.Lock()
	conns := server.conns
	server.conns = nil
	server.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

// Stop closes the listener and all connections and waits for the server
// goroutines to finish.
func (server *fakeManager) Stop() {
	_ = server.listener.Close()
	server.mu.Lock()
	for _, conn := range server.conns {
		_ = conn.Close()
	}
	server.mu.Unlock()
	server.wg.Wait()
}

func (server *fakeManager) acceptLoop() {
	defer server.wg.Done()
	for {
		conn, err := server.listener.Accept()
		if err != nil {
			return
		}
		server.mu.Lock()
		server.conns = append(server.conns, conn)
		server.accepted++
		server.mu.Unlock()

		server.wg.Add(1)
		go server.serve(conn)
	}
}

func (server *fakeManager) serve(conn net.Conn) {
	defer server.wg.Done()
	defer conn.Close()

	_, _ = conn.Write([]byte("Asterisk Call Manager/2.10.5\r\n"))

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
		if len(action) > 0 {
			server.handle(conn, action)
			action = make(map[string]string)
		}
	}
}

func (server *fakeManager) handle(conn net.Conn, action map[string]string) {
	name := strings.ToLower(action["action"])
	actionID := action["actionid"]

	server.mu.Lock()
	raw, scripted := server.raw[name]
	muted := server.silent[name]
	server.mu.Unlock()

	if muted {
		return
	}
	if scripted {
		_, _ = conn.Write([]byte(raw))
		return
	}

	switch name {
	case "challenge":
		server.respond(conn, actionID, "Response: Success", "Challenge: "+server.chal)

	case "login":
		ok := false
		if action["authtype"] == "MD5" {
			digest := md5.Sum([]byte(server.chal + server.secret))
			ok = action["username"] == server.username && action["key"] == hex.EncodeToString(digest[:])
		} else {
			ok = action["username"] == server.username && action["secret"] == server.secret
		}
		if ok {
			server.respond(conn, actionID, "Response: Success", "Message: Authentication accepted")
		} else {
			server.respond(conn, actionID, "Response: Error", "Message: Authentication failed")
		}

	case "ping":
		server.respond(conn, actionID, "Response: Success", "Ping: Pong")

	case "logoff":
		server.respond(conn, actionID, "Response: Goodbye", "Message: Thanks for all the fish.")

	default:
		lines := []string{"Response: Success"}
		for field, value := range action {
			if field == "action" || field == "actionid" {
				continue
			}
			lines = append(lines, field+": "+value)
		}
		server.respond(conn, actionID, lines...)
	}
}

func (server *fakeManager) respond(conn net.Conn, actionID string, lines ...string) {
	var payload strings.Builder
	for _, line := range lines {
		payload.WriteString(line)
		payload.WriteString("\r\n")
	}
	if actionID != "" {
		payload.WriteString("ActionID: " + actionID + "\r\n")
	}
	payload.WriteString("\r\n")
	_, _ = conn.Write([]byte(payload.String()))
}

// readyClient connects and authenticates a client against the fake server.
func readyClient(t *testing.T, server *fakeManager) *Client {
	t.Helper()
	client := NewClient().SetCredentials(server.username, server.secret)
	if err := client.Connect(server.Addr()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	return client
}
