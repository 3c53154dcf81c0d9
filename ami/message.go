package ami

import "strings"

// Field is a single protocol header line: a name and its value.
type Field struct {
	Name  string
	Value string
}

// Message is one complete unit of AMI traffic: an ordered set of header
// fields terminated on the wire by a blank line, plus any free-text lines
// (command output) that did not parse as "Name: value". A Message is
// immutable once the assembler emits it.
type Message struct {
	names  []string
	values map[string]string
	output []string
}

func newMessage() *Message {
	return &Message{values: make(map[string]string)}
}

func (msg *Message) setField(name string, value string) {
	key := strings.ToLower(name)
	if _, exists := msg.values[key]; !exists {
		msg.names = append(msg.names, name)
	}
	msg.values[key] = value
}

func (msg *Message) addOutput(line string) {
	msg.output = append(msg.output, line)
}

func (msg *Message) empty() bool {
	return len(msg.names) == 0 && len(msg.output) == 0
}

// Field returns the value recorded for a field name. Lookup is
// case-insensitive; later lines overwrite earlier ones for the same name.
func (msg *Message) Field(name string) (string, bool) {
	value, exists := msg.values[strings.ToLower(name)]
	return value, exists
}

// Get returns the field value, or the empty string when absent.
func (msg *Message) Get(name string) string {
	value, _ := msg.Field(name)
	return value
}

// Fields returns every header field in the order first received, with the
// spelling the remote side used.
func (msg *Message) Fields() []Field {
	fields := make([]Field, 0, len(msg.names))
	for _, name := range msg.names {
		fields = append(fields, Field{Name: name, Value: msg.values[strings.ToLower(name)]})
	}
	return fields
}

// Output returns the free-text lines captured for this message, in order.
func (msg *Message) Output() []string {
	if len(msg.output) == 0 {
		return nil
	}
	lines := make([]string, len(msg.output))
	copy(lines, msg.output)
	return lines
}

// ActionID returns the correlation identifier, when present.
func (msg *Message) ActionID() (string, bool) { return msg.Field("ActionID") }

// Event returns the event name, when present.
func (msg *Message) Event() (string, bool) { return msg.Field("Event") }

// Response returns the Response field ("Success", "Error", ...), when present.
func (msg *Message) Response() (string, bool) { return msg.Field("Response") }

// IsError reports whether the remote side answered Response: Error.
func (msg *Message) IsError() bool {
	response, _ := msg.Response()
	return response == "Error"
}

func (msg *Message) String() string {
	var builder strings.Builder
	for _, field := range msg.Fields() {
		builder.WriteString(field.Name)
		builder.WriteString(": ")
		builder.WriteString(field.Value)
		builder.WriteByte('\n')
	}
	for _, line := range msg.output {
		builder.WriteString(line)
		builder.WriteByte('\n')
	}
	return builder.String()
}
