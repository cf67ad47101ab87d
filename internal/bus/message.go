// Package bus is the in-process message bus that connects the skill manager,
// skill processes and the admin API.
package bus

import "fmt"

// Message is a typed payload with an opaque routing context.
type Message struct {
	Type    string         `json:"type"`
	Data    map[string]any `json:"data"`
	Context map[string]any `json:"context,omitempty"`
}

// NewMessage builds a message with an empty context.
func NewMessage(typ string, data map[string]any) Message {
	if data == nil {
		data = map[string]any{}
	}
	return Message{Type: typ, Data: data, Context: map[string]any{}}
}

// Reply builds a response message that carries a copy of m's context, so the
// originator can correlate it.
func (m Message) Reply(typ string, data map[string]any) Message {
	out := NewMessage(typ, data)
	for k, v := range m.Context {
		out.Context[k] = v
	}
	return out
}

// WithContext returns a copy of m with key set in its context.
func (m Message) WithContext(key string, value any) Message {
	ctx := make(map[string]any, len(m.Context)+1)
	for k, v := range m.Context {
		ctx[k] = v
	}
	ctx[key] = value
	m.Context = ctx
	return m
}

// String returns Data[key] as a string, or "" when absent.
func (m Message) String(key string) string {
	v, ok := m.Data[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Strings returns Data[key] as a string slice. A single string becomes a
// one element slice; JSON decoded []any values are converted element-wise.
func (m Message) Strings(key string) []string {
	switch v := m.Data[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}
