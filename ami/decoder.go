package ami

import (
	"regexp"
	"strings"
)

// fieldLinePattern matches one "Name: value" header line. The value part is
// optional; anything that does not match is command output.
var fieldLinePattern = regexp.MustCompile(`^(\S+):\s*(.*)$`)

// decoder turns an arbitrarily chunked incoming text stream into completed
// Messages. Chunk boundaries carry no meaning: a chunk may end mid-line,
// mid-message, or span several messages, and the resulting Message sequence
// is identical either way.
type decoder struct {
	partial strings.Builder
	current *Message
}

func newDecoder() *decoder {
	return &decoder{current: newMessage()}
}

// Feed consumes one chunk and returns the Messages it completed, in order.
// Malformed lines never fail decoding; they degrade to free-text output.
func (dec *decoder) Feed(chunk string) []*Message {
	var completed []*Message

	for {
		newline := strings.IndexByte(chunk, '\n')
		if newline < 0 {
			dec.partial.WriteString(chunk)
			return completed
		}

		line := chunk[:newline]
		chunk = chunk[newline+1:]
		if dec.partial.Len() > 0 {
			line = dec.partial.String() + line
			dec.partial.Reset()
		}
		line = strings.TrimSuffix(line, "\r")

		if line == "" {
			// Message boundary. A blank line with nothing accumulated is
			// an idle keepalive.
			if !dec.current.empty() {
				completed = append(completed, dec.current)
				dec.current = newMessage()
			}
			continue
		}

		if groups := fieldLinePattern.FindStringSubmatch(line); groups != nil {
			dec.current.setField(groups[1], groups[2])
		} else {
			dec.current.addOutput(line)
		}
	}
}
