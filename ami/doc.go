// Package ami implements a client for the Asterisk Manager Interface, the
// line-oriented text protocol a telephony switch exposes over a persistent
// TCP connection.
//
// The primary lifecycle is:
//   - construct a Client with NewClient and configure credentials
//   - Connect to the manager address, which runs the login handshake
//   - Send actions and wait on the returned futures
//   - register event handlers with On, or range a Stream
//   - Logoff or Close when finished
//
// One incoming stream multiplexes two message kinds: responses correlated
// to a request by ActionID, and unsolicited events identified by name. A
// single background goroutine frames and routes inbound traffic; callers
// block only on their own request's Future. Sends may be issued from any
// number of goroutines; the client serializes transport writes so lines
// never interleave.
//
// Errors are reported as typed errors created with NewError; a remote
// Response: Error resolves the affected future with an *ActionFailure
// carrying the diagnostic text and the full response message. Transport
// failures cascade into every outstanding future and fire the configured
// disconnect handler. Probe provides a liveness check that closes and
// re-dials a dead connection.
package ami
