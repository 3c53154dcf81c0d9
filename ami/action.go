package ami

import "strings"

// Action is one outgoing request: an ordered list of header fields. Field
// values are opaque strings; the engine performs no validation of their
// content against protocol semantics.
type Action struct {
	fields []Field
}

// NewAction builds an Action whose first field names the AMI action.
func NewAction(name string) *Action {
	action := &Action{}
	return action.Set("Action", name)
}

// ActionFromFields wraps an already ordered field list.
func ActionFromFields(fields []Field) *Action {
	action := &Action{fields: make([]Field, len(fields))}
	copy(action.fields, fields)
	return action
}

// Set appends a field, or overwrites the value of an existing field with
// the same name (case-insensitive). It returns the Action for chaining.
func (action *Action) Set(name string, value string) *Action {
	for i := range action.fields {
		if strings.EqualFold(action.fields[i].Name, name) {
			action.fields[i].Value = value
			return action
		}
	}
	action.fields = append(action.fields, Field{Name: name, Value: value})
	return action
}

// Add appends a field without replacing earlier ones with the same name.
// Some actions (Originate) legitimately repeat a header line.
func (action *Action) Add(name string, value string) *Action {
	action.fields = append(action.fields, Field{Name: name, Value: value})
	return action
}

// Field returns the value for a field name, case-insensitively.
func (action *Action) Field(name string) (string, bool) {
	for _, field := range action.fields {
		if strings.EqualFold(field.Name, name) {
			return field.Value, true
		}
	}
	return "", false
}

// Fields returns the ordered field list.
func (action *Action) Fields() []Field {
	fields := make([]Field, len(action.fields))
	copy(fields, action.fields)
	return fields
}

// Name returns the action name, when set.
func (action *Action) Name() (string, bool) { return action.Field("Action") }

// ActionID returns the caller-supplied correlation identifier, when present.
func (action *Action) ActionID() (string, bool) { return action.Field("ActionID") }
