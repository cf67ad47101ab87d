package bus

import "sync"

// Recorder stores every message it is handed. Subscribe it with Wildcard to
// capture a full trace in tests.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func NewRecorder() *Recorder { return &Recorder{} }

// Handle appends msg.
func (r *Recorder) Handle(msg Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// ByType returns the recorded messages with the given type.
func (r *Recorder) ByType(typ string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

// Count returns how many messages of typ were recorded.
func (r *Recorder) Count(typ string) int { return len(r.ByType(typ)) }

// Reset drops everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}
