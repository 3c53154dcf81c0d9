package ami

import (
	"reflect"
	"testing"
)

const sampleTraffic = "Asterisk Call Manager/2.10.5\r\n" +
	"Response: Success\r\nActionID: 7\r\nMessage: Authentication accepted\r\n\r\n" +
	"Event: Hangup\r\nChannel: SIP/100-1\r\nCause: 16\r\n\r\n" +
	"Response: Follows\r\nActionID: 8\r\nchan_sip.so loaded\r\n--END COMMAND--\r\n\r\n"

func feedAll(dec *decoder, input string, chunkSize int) []*Message {
	var messages []*Message
	for len(input) > 0 {
		size := chunkSize
		if size > len(input) {
			size = len(input)
		}
		messages = append(messages, dec.Feed(input[:size])...)
		input = input[size:]
	}
	return messages
}

func flatten(messages []*Message) []string {
	var flat []string
	for _, message := range messages {
		flat = append(flat, message.String())
	}
	return flat
}

func TestDecoderChunkingInvariance(t *testing.T) {
	whole := feedAll(newDecoder(), sampleTraffic, len(sampleTraffic))

	for _, chunkSize := range []int{1, 2, 3, 5, 7, 16, 64} {
		chunked := feedAll(newDecoder(), sampleTraffic, chunkSize)
		if !reflect.DeepEqual(flatten(whole), flatten(chunked)) {
			t.Fatalf("chunk size %d changed parsing results:\n got %q\nwant %q",
				chunkSize, flatten(chunked), flatten(whole))
		}
	}

	if len(whole) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(whole))
	}
}

func TestDecoderFieldParsing(t *testing.T) {
	messages := newDecoder().Feed("Response: Success\r\nActionID: 42\r\n\r\n")
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %d", len(messages))
	}

	message := messages[0]
	if response, _ := message.Response(); response != "Success" {
		t.Fatalf("unexpected Response: %q", response)
	}
	if actionID, _ := message.ActionID(); actionID != "42" {
		t.Fatalf("unexpected ActionID: %q", actionID)
	}
}

func TestDecoderValuelessAndWhitespaceFields(t *testing.T) {
	messages := newDecoder().Feed("Variable:\nValue:   spaced out  \n\n")
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %d", len(messages))
	}

	if value := messages[0].Get("Variable"); value != "" {
		t.Fatalf("expected empty value, got %q", value)
	}
	// Whitespace after the colon is separator, whitespace inside the
	// value is payload.
	if value := messages[0].Get("Value"); value != "spaced out  " {
		t.Fatalf("unexpected value: %q", value)
	}
}

func TestDecoderFreeTextCapture(t *testing.T) {
	input := "Response: Follows\nActionID: 9\n" +
		"Channel (Context Extension Pri) State\n" +
		"0 active channels\n\n"

	messages := newDecoder().Feed(input)
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %d", len(messages))
	}

	output := messages[0].Output()
	want := []string{"Channel (Context Extension Pri) State", "0 active channels"}
	if !reflect.DeepEqual(output, want) {
		t.Fatalf("unexpected output lines: got %q want %q", output, want)
	}
}

func TestDecoderMalformedInputDegradesToOutput(t *testing.T) {
	messages := newDecoder().Feed("Response: Success\n\x01\x02 stray bytes\n: no token\n\n")
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %d", len(messages))
	}
	if got := len(messages[0].Output()); got != 2 {
		t.Fatalf("expected 2 free-text lines, got %d: %q", got, messages[0].Output())
	}
}

func TestDecoderIdleKeepalives(t *testing.T) {
	dec := newDecoder()
	if messages := dec.Feed("\r\n\r\n\n\r\n"); len(messages) != 0 {
		t.Fatalf("blank lines with no accumulated fields must be no-ops, got %d messages", len(messages))
	}
	if messages := dec.Feed("Event: Reload\n\n"); len(messages) != 1 {
		t.Fatalf("decoder did not recover after keepalives, got %d messages", len(messages))
	}
}

func TestDecoderDuplicateFieldOverwrites(t *testing.T) {
	messages := newDecoder().Feed("Header: one\nheader: two\n\n")
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %d", len(messages))
	}

	message := messages[0]
	if value := message.Get("HEADER"); value != "two" {
		t.Fatalf("later line must overwrite earlier value, got %q", value)
	}
	if fields := message.Fields(); len(fields) != 1 || fields[0].Name != "Header" {
		t.Fatalf("unexpected field list: %+v", fields)
	}
}

func TestDecoderBareLFAccepted(t *testing.T) {
	crlf := newDecoder().Feed("Event: Newchannel\r\nChannel: SIP/100-1\r\n\r\n")
	lf := newDecoder().Feed("Event: Newchannel\nChannel: SIP/100-1\n\n")
	if !reflect.DeepEqual(flatten(crlf), flatten(lf)) {
		t.Fatalf("CRLF and LF parsing differ: %q vs %q", flatten(crlf), flatten(lf))
	}
}
