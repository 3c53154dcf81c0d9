package ami

import (
	"bytes"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnectionState is the lifecycle phase of a Client's connection.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateAuthenticating
	StateReady
	StateClosing
)

func (state ConnectionState) String() string {
	switch state {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

const defaultConnectTimeout = 10 * time.Second

// session is the state owned by one physical connection attempt. A fresh
// session is created per Connect; the identifier counter and the pending
// table never survive a reconnect.
type session struct {
	conn          net.Conn
	hostname      string
	discriminator string
	nextID        uint64
	pending       map[string]*Future
	closed        bool
	done          chan struct{}
}

// Client manages a single AMI connection: framing, response correlation,
// event dispatch, the login handshake, and liveness probing.
type Client struct {
	username          string
	secret            string
	authenticator     Authenticator
	connectTimeout    time.Duration
	logger            *slog.Logger
	errorHandler      func(err error)
	disconnectHandler func(client *Client, err error)

	lock      sync.Mutex
	writeLock sync.Mutex
	state     ConnectionState
	address   string
	session   *session

	events *eventBus
}

// NewClient returns a new, disconnected Client.
func NewClient() *Client {
	return &Client{
		connectTimeout: defaultConnectTimeout,
		logger:         slog.New(slog.DiscardHandler),
		events:         newEventBus(),
	}
}

// SetCredentials sets the manager username and secret used at login.
func (client *Client) SetCredentials(username string, secret string) *Client {
	client.username = username
	client.secret = secret
	return client
}

// SetAuthenticator overrides the login handshake. The default is MD5
// challenge/response with the configured credentials.
func (client *Client) SetAuthenticator(authenticator Authenticator) *Client {
	client.authenticator = authenticator
	return client
}

// SetConnectTimeout bounds the dial and each handshake step.
func (client *Client) SetConnectTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		client.connectTimeout = timeout
	}
	return client
}

// SetLogger sets the logger owned by this client instance.
func (client *Client) SetLogger(logger *slog.Logger) *Client {
	if logger != nil {
		client.logger = logger
	}
	return client
}

// SetErrorHandler sets a callback for contained errors the client logs but
// does not return to any caller.
func (client *Client) SetErrorHandler(errorHandler func(error)) *Client {
	client.errorHandler = errorHandler
	return client
}

// SetDisconnectHandler sets a callback fired when the connection is lost
// for any reason other than an explicit Close.
func (client *Client) SetDisconnectHandler(disconnectHandler func(*Client, error)) *Client {
	client.disconnectHandler = disconnectHandler
	return client
}

// State returns the current connection state.
func (client *Client) State() ConnectionState {
	client.lock.Lock()
	defer client.lock.Unlock()
	return client.state
}

// Connect dials the manager address ("host:port"), starts the read
// goroutine, and runs the login handshake. On success the client is Ready;
// on any failure it is left Disconnected and the error is returned.
func (client *Client) Connect(address string) error {
	client.lock.Lock()
	if client.state != StateDisconnected {
		client.lock.Unlock()
		return NewError(AlreadyConnectedError)
	}
	client.state = StateConnecting
	client.address = address
	timeout := client.connectTimeout
	client.lock.Unlock()

	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		client.lock.Lock()
		client.state = StateDisconnected
		client.lock.Unlock()
		return NewError(ConnectionRefusedError, err)
	}

	sess := &session{
		conn:          conn,
		hostname:      conn.LocalAddr().String(),
		discriminator: uuid.NewString(),
		pending:       make(map[string]*Future),
		done:          make(chan struct{}),
	}

	client.lock.Lock()
	client.session = sess
	client.state = StateAuthenticating
	authenticator := client.authenticator
	client.lock.Unlock()

	go client.readLoop(sess)

	if authenticator == nil {
		authenticator = &ChallengeResponseAuthenticator{Username: client.username, Secret: client.secret}
	}
	if err := authenticator.Authenticate(client); err != nil {
		client.teardown(sess, err)
		<-sess.done
		return err
	}

	client.lock.Lock()
	// The connection can drop while the handshake response is in flight.
	if client.session != sess {
		client.lock.Unlock()
		return NewError(ConnectionError, "connection lost during login")
	}
	client.state = StateReady
	client.lock.Unlock()

	client.logger.Info("connection ready", "address", address)
	return nil
}

// Send writes one request and returns the future its response resolves.
// The engine generates an ActionID when the action does not carry one; the
// generated identifier is unique for the life of the connection.
func (client *Client) Send(action *Action) (*Future, error) {
	return client.send(action, false)
}

// request is the correlated round trip used internally by authenticators
// and lifecycle actions; it may run before the client is Ready.
func (client *Client) request(action *Action) (*Message, error) {
	future, err := client.send(action, true)
	if err != nil {
		return nil, err
	}
	return future.WaitTimeout(client.connectTimeout)
}

func (client *Client) send(action *Action, duringLogin bool) (*Future, error) {
	client.lock.Lock()
	sess := client.session
	usable := client.state == StateReady || (duringLogin && client.state == StateAuthenticating)
	if !usable || sess == nil || sess.closed {
		client.lock.Unlock()
		return nil, NewError(DisconnectedError, "client is not connected while trying to send")
	}

	actionID, supplied := action.ActionID()
	if !supplied || actionID == "" {
		sess.nextID++
		actionID = sess.hostname + "-" + sess.discriminator + "-" + strconv.FormatUint(sess.nextID, 10)
	}

	future := newFuture()
	sess.pending[actionID] = future
	client.lock.Unlock()

	var payload bytes.Buffer
	payload.WriteString("ActionID: ")
	payload.WriteString(actionID)
	payload.WriteByte('\n')
	for _, field := range action.Fields() {
		if strings.EqualFold(field.Name, "ActionID") {
			continue
		}
		payload.WriteString(strings.ToLower(field.Name))
		payload.WriteString(": ")
		payload.WriteString(field.Value)
		payload.WriteByte('\n')
	}
	payload.WriteByte('\n')

	// One writer at a time: concurrent sends must never interleave lines.
	client.writeLock.Lock()
	_, err := sess.conn.Write(payload.Bytes())
	client.writeLock.Unlock()

	if err != nil {
		client.lock.Lock()
		delete(sess.pending, actionID)
		client.lock.Unlock()
		err = NewError(ConnectionError, err)
		future.fail(err)
		client.connectionLost(sess, err)
		return nil, err
	}

	return future, nil
}

// readLoop is the single background task that owns inbound framing. It is
// the one place where message order is authoritative.
func (client *Client) readLoop(sess *session) {
	defer close(sess.done)

	dec := newDecoder()
	buffer := make([]byte, 32*1024)

	for {
		count, err := sess.conn.Read(buffer)
		if count > 0 {
			for _, message := range dec.Feed(string(buffer[:count])) {
				client.route(sess, message)
			}
		}
		if err != nil {
			client.connectionLost(sess, NewError(ConnectionError, err))
			return
		}
	}
}

// route hands one assembled message to the correlator and/or the event
// bus. A message carrying both an ActionID and an Event goes to both.
func (client *Client) route(sess *session, message *Message) {
	if actionID, hasActionID := message.ActionID(); hasActionID {
		client.lock.Lock()
		future, exists := sess.pending[actionID]
		if exists {
			delete(sess.pending, actionID)
		}
		client.lock.Unlock()

		if exists {
			if message.IsError() {
				future.fail(newActionFailure(message))
			} else {
				future.resolve(message)
			}
		} else {
			client.logger.Debug("dropping response with no pending request", "actionid", actionID)
		}
	}

	if event, hasEvent := message.Event(); hasEvent {
		client.events.dispatch(event, message, client.logger)
	}
}

// connectionLost tears the session down after a transport failure and
// cascades the error into every outstanding future.
func (client *Client) connectionLost(sess *session, err error) {
	pending, active := client.detach(sess, StateDisconnected)
	if !active {
		return
	}

	for _, future := range pending {
		future.fail(err)
	}

	client.logger.Warn("connection lost", "error", err)
	if client.errorHandler != nil {
		client.errorHandler(err)
	}
	if client.disconnectHandler != nil {
		client.disconnectHandler(client, err)
	}
}

// teardown closes a session on a failed connection attempt.
func (client *Client) teardown(sess *session, err error) {
	pending, active := client.detach(sess, StateDisconnected)
	if !active {
		return
	}
	for _, future := range pending {
		future.fail(NewError(DisconnectedError, err))
	}
}

// detach atomically closes the session's socket, empties its pending
// table, and moves the client to the given state. It reports whether this
// call was the one that retired the session.
func (client *Client) detach(sess *session, state ConnectionState) (map[string]*Future, bool) {
	client.lock.Lock()
	defer client.lock.Unlock()

	if client.session != sess || sess.closed {
		return nil, false
	}
	sess.closed = true
	_ = sess.conn.Close()

	pending := sess.pending
	sess.pending = make(map[string]*Future)
	client.session = nil
	client.state = state

	return pending, true
}

// Close cancels the background read task, fails every outstanding request,
// and closes the transport. It is safe to call on a disconnected client.
func (client *Client) Close() error {
	client.lock.Lock()
	sess := client.session
	if sess == nil {
		client.state = StateDisconnected
		client.lock.Unlock()
		return nil
	}
	client.state = StateClosing
	client.lock.Unlock()

	pending, active := client.detach(sess, StateClosing)
	if active {
		for _, future := range pending {
			future.fail(NewError(DisconnectedError, "connection closed"))
		}
	}

	// The closed socket forces the read goroutine to exit promptly.
	<-sess.done

	client.lock.Lock()
	client.state = StateDisconnected
	client.lock.Unlock()

	client.logger.Info("connection closed")
	return nil
}

// Logoff sends a polite Logoff action, then closes the connection.
func (client *Client) Logoff() error {
	if future, err := client.Send(NewAction("Logoff")); err == nil {
		_, _ = future.WaitTimeout(client.connectTimeout)
	}
	return client.Close()
}

// Probe checks connection liveness with a Ping round trip bounded by
// timeout. On timeout or failure it treats the connection as dead, closes
// it, and dials a fresh session; a failed reconnect attempt returns its
// error to the caller.
func (client *Client) Probe(timeout time.Duration) error {
	future, err := client.Send(Ping())
	if err == nil {
		if _, err = future.WaitTimeout(timeout); err == nil {
			return nil
		}
	}

	client.lock.Lock()
	address := client.address
	client.lock.Unlock()

	client.logger.Warn("liveness probe failed, reconnecting", "error", err)
	if closeErr := client.Close(); closeErr != nil {
		return closeErr
	}
	return client.Connect(address)
}

// On registers a handler for an event name and returns its subscription
// handle. Handlers for one event run in registration order. Subscriptions
// are owned by the Client and survive reconnects.
func (client *Client) On(event string, handler EventHandler) *Subscription {
	return client.events.subscribe(event, handler)
}

// Off removes a subscription. Removing it twice is a no-op.
func (client *Client) Off(sub *Subscription) {
	client.events.unsubscribe(sub)
}
