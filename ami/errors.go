package ami

import "fmt"

const (
	AlreadyConnectedError = iota

	AuthenticationError

	CommandError

	ConnectionError

	ConnectionRefusedError

	DisconnectedError

	ProtocolError

	TimedOutError

	UnknownError
)

// NewError builds a typed client error from one of the package error codes
// and an optional detail.
func NewError(errorCode int, message ...interface{}) error {
	var errorName string

	switch errorCode {
	case AlreadyConnectedError:
		errorName = "AlreadyConnectedError"
	case AuthenticationError:
		errorName = "AuthenticationError"
	case CommandError:
		errorName = "CommandError"
	case ConnectionError:
		errorName = "ConnectionError"
	case ConnectionRefusedError:
		errorName = "ConnectionRefusedError"
	case DisconnectedError:
		errorName = "DisconnectedError"
	case ProtocolError:
		errorName = "ProtocolError"
	case TimedOutError:
		errorName = "TimedOutError"
	default:
		errorName = "UnknownError"
	}

	if len(message) > 0 {
		return fmt.Errorf("%s: %s", errorName, message[0])
	}

	return fmt.Errorf("%s", errorName)
}

// ActionFailure is the error resolved into a request's future when the
// remote side answers Response: Error. Reason carries the diagnostic text
// of the Message field; Response is the full error message.
type ActionFailure struct {
	Reason   string
	Response *Message
}

func (failure *ActionFailure) Error() string {
	if failure.Reason == "" {
		return "ami: action failed"
	}
	return "ami: action failed: " + failure.Reason
}

func newActionFailure(response *Message) *ActionFailure {
	return &ActionFailure{Reason: response.Get("Message"), Response: response}
}
