package main

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amitel/ami-client-go/ami"
)

// testServer wraps a managerServer with a real listener so the manager
// client can drive it over TCP.
type testServer struct {
	server   *managerServer
	listener net.Listener
	wg       sync.WaitGroup

	mu    sync.Mutex
	conns []net.Conn
}

func startTestServer(t *testing.T, configure func(*managerServer)) *testServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	harness := &testServer{
		server:   newManagerServer("2.10.5"),
		listener: listener,
	}
	if configure != nil {
		configure(harness.server)
	}

	harness.wg.Add(1)
	go func() {
		defer harness.wg.Done()
		for {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return
			}
			harness.mu.Lock()
			harness.conns = append(harness.conns, conn)
			harness.mu.Unlock()

			harness.wg.Add(1)
			go func() {
				defer harness.wg.Done()
				harness.server.serveConnection(conn)
			}()
		}
	}()

	t.Cleanup(func() {
		_ = listener.Close()
		harness.mu.Lock()
		for _, conn := range harness.conns {
			_ = conn.Close()
		}
		harness.mu.Unlock()
		harness.wg.Wait()
	})

	return harness
}

func (harness *testServer) addr() string { return harness.listener.Addr().String() }

func connect(t *testing.T, harness *testServer, client *ami.Client) *ami.Client {
	t.Helper()
	if err := client.Connect(harness.addr()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func roundTrip(t *testing.T, client *ami.Client, action *ami.Action) *ami.Message {
	t.Helper()
	future, err := client.Send(action)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	response, err := future.WaitTimeout(5 * time.Second)
	if err != nil {
		t.Fatalf("no response: %v", err)
	}
	return response
}

func TestChallengeResponseLogin(t *testing.T) {
	harness := startTestServer(t, func(server *managerServer) {
		server.configureAuth("admin:s3cret")
	})

	client := connect(t, harness, ami.NewClient().SetCredentials("admin", "s3cret"))

	response := roundTrip(t, client, ami.Ping())
	if response.Get("Ping") != "Pong" {
		t.Fatalf("expected a Pong, got %v", response)
	}
}

func TestPlainTextLoginRejectedWhenMD5Required(t *testing.T) {
	harness := startTestServer(t, func(server *managerServer) {
		server.configureAuth("admin:s3cret")
		server.requireMD5 = true
	})

	client := ami.NewClient().
		SetAuthenticator(&ami.PlainTextAuthenticator{Username: "admin", Secret: "s3cret"})
	err := client.Connect(harness.addr())
	if err == nil {
		_ = client.Close()
		t.Fatal("plaintext login must be rejected when MD5 is required")
	}
}

func TestBadSecretRejected(t *testing.T) {
	harness := startTestServer(t, func(server *managerServer) {
		server.configureAuth("admin:s3cret")
	})

	client := ami.NewClient().SetCredentials("admin", "nope")
	if err := client.Connect(harness.addr()); err == nil {
		_ = client.Close()
		t.Fatal("bad secret must be rejected")
	}
}

func TestActionsRequireLogin(t *testing.T) {
	harness := startTestServer(t, nil)

	conn, err := net.Dial("tcp", harness.addr())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	_, _ = conn.Write([]byte("action: Ping\nactionid: 1\n\n"))

	buffer := make([]byte, 4096)
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	var received strings.Builder
	for !strings.Contains(received.String(), "Permission denied") {
		count, readErr := conn.Read(buffer)
		if readErr != nil {
			t.Fatalf("expected a permission error, got %q (%v)", received.String(), readErr)
		}
		received.Write(buffer[:count])
	}
}

func TestVariableStoreRoundTrip(t *testing.T) {
	harness := startTestServer(t, nil)
	client := connect(t, harness, ami.NewClient().SetCredentials("anyone", "anything"))

	roundTrip(t, client, ami.SetVar("GREETING", "hello", ""))

	response := roundTrip(t, client, ami.GetVar("GREETING", ""))
	if response.Get("Value") != "hello" {
		t.Fatalf("variable lost: %v", response)
	}

	// Channel scope is independent of the global scope.
	roundTrip(t, client, ami.SetVar("GREETING", "channel-scoped", "SIP/100-1"))
	response = roundTrip(t, client, ami.GetVar("GREETING", ""))
	if response.Get("Value") != "hello" {
		t.Fatalf("channel variable leaked into global scope: %v", response)
	}
}

func TestAstDBOperations(t *testing.T) {
	harness := startTestServer(t, nil)
	client := connect(t, harness, ami.NewClient().SetCredentials("anyone", "anything"))

	roundTrip(t, client, ami.DBPut("devices", "phone/1", "SIP/100"))
	roundTrip(t, client, ami.DBPut("devices", "phone/2", "SIP/200"))

	response := roundTrip(t, client, ami.DBGet("devices", "phone/1"))
	if response.Get("Val") != "SIP/100" {
		t.Fatalf("unexpected DBGet result: %v", response)
	}

	roundTrip(t, client, ami.DBDel("devices", "phone/1"))

	future, err := client.Send(ami.DBGet("devices", "phone/1"))
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := future.WaitTimeout(5 * time.Second); err == nil {
		t.Fatal("deleted entry must not resolve")
	}

	roundTrip(t, client, ami.DBDelTree("devices", ""))
	future, err = client.Send(ami.DBGet("devices", "phone/2"))
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := future.WaitTimeout(5 * time.Second); err == nil {
		t.Fatal("entry must be gone after subtree deletion")
	}
}

func TestCommandOutputFraming(t *testing.T) {
	harness := startTestServer(t, nil)
	client := connect(t, harness, ami.NewClient().SetCredentials("anyone", "anything"))

	response := roundTrip(t, client, ami.Command("core show version"))
	if value, _ := response.Response(); value != "Follows" {
		t.Fatalf("expected a Follows response, got %v", response)
	}

	output := response.Output()
	if len(output) < 2 {
		t.Fatalf("expected command output lines, got %v", output)
	}
	if !strings.Contains(output[0], "Asterisk 18.0.0") {
		t.Fatalf("unexpected output: %v", output)
	}
	if output[len(output)-1] != "--END COMMAND--" {
		t.Fatalf("missing end marker: %v", output)
	}
}

func TestUserEventFanout(t *testing.T) {
	harness := startTestServer(t, nil)

	sender := connect(t, harness, ami.NewClient().SetCredentials("sender", "x"))
	receiver := connect(t, harness, ami.NewClient().SetCredentials("receiver", "x"))

	received := make(chan *ami.Message, 1)
	receiver.On("UserEventDeploy", func(event *ami.Message) { received <- event })

	roundTrip(t, sender, ami.UserEvent("Deploy", map[string]string{"Release": "v42"}))

	select {
	case event := <-received:
		if event.Get("Release") != "v42" {
			t.Fatalf("event payload lost: %v", event)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("user event never fanned out")
	}
}

func TestEventsOffSuppressesBroadcast(t *testing.T) {
	harness := startTestServer(t, nil)

	muted := connect(t, harness, ami.NewClient().SetCredentials("muted", "x"))
	sender := connect(t, harness, ami.NewClient().SetCredentials("sender", "x"))

	events := make(chan *ami.Message, 1)
	muted.On("UserEventQuiet", func(event *ami.Message) { events <- event })

	roundTrip(t, muted, ami.Events("off"))
	roundTrip(t, sender, ami.UserEvent("Quiet", nil))

	select {
	case <-events:
		t.Fatal("muted session must not receive broadcasts")
	case <-time.After(300 * time.Millisecond):
	}
}
