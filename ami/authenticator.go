package ami

import (
	"crypto/md5"
	"encoding/hex"
)

// Authenticator performs the login handshake on a freshly connected
// session, before the client is marked Ready. Implementations talk to the
// manager through the client's internal request path, so handshake traffic
// is correlated like any other action.
type Authenticator interface {
	Authenticate(client *Client) error
}

// PlainTextAuthenticator logs in with credentials in clear text.
type PlainTextAuthenticator struct {
	Username string
	Secret   string
}

// Authenticate sends a single Login action carrying the secret.
func (auth *PlainTextAuthenticator) Authenticate(client *Client) error {
	login := NewAction("Login").
		Set("Username", auth.Username).
		Set("Secret", auth.Secret)

	if _, err := client.request(login); err != nil {
		return NewError(AuthenticationError, err)
	}
	return nil
}

// ChallengeResponseAuthenticator logs in with the MD5 challenge/response
// scheme: it requests a challenge, then sends a Login whose Key field is
// the MD5 digest of the challenge text concatenated with the secret. The
// secret itself never crosses the wire.
type ChallengeResponseAuthenticator struct {
	Username string
	Secret   string
}

// Authenticate runs the strict two-step handshake. The Login step is never
// attempted when the Challenge step fails.
func (auth *ChallengeResponseAuthenticator) Authenticate(client *Client) error {
	challenge, err := client.request(NewAction("Challenge").Set("AuthType", "MD5"))
	if err != nil {
		return NewError(AuthenticationError, err)
	}

	digest := md5.Sum([]byte(challenge.Get("Challenge") + auth.Secret))

	login := NewAction("Login").
		Set("AuthType", "MD5").
		Set("Username", auth.Username).
		Set("Key", hex.EncodeToString(digest[:]))

	if _, err := client.request(login); err != nil {
		return NewError(AuthenticationError, err)
	}
	return nil
}
