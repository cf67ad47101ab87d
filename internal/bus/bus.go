package bus

import (
	"sync"

	"github.com/rs/zerolog"
)

// Wildcard subscribes a handler to every message type.
const Wildcard = "*"

// Handler receives a published message.
type Handler func(Message)

// Bus is the publish/subscribe surface used throughout skilld.
type Bus interface {
	// Subscribe registers h for topic and returns a function that removes it.
	Subscribe(topic string, h Handler) (unsubscribe func())
	// Publish delivers msg to the subscribers of msg.Type and of Wildcard.
	Publish(msg Message)
}

type subscription struct {
	h Handler
}

// LocalBus dispatches messages synchronously on the publisher's goroutine.
// A panicking handler is logged and does not affect other handlers.
type LocalBus struct {
	mu     sync.RWMutex
	topics map[string][]*subscription
	log    zerolog.Logger
}

// NewLocal returns an empty LocalBus.
func NewLocal(log zerolog.Logger) *LocalBus {
	return &LocalBus{topics: make(map[string][]*subscription), log: log}
}

func (b *LocalBus) Subscribe(topic string, h Handler) func() {
	sub := &subscription{h: h}
	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], sub)
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.topics[topic]
			for i, s := range subs {
				if s == sub {
					b.topics[topic] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
			if len(b.topics[topic]) == 0 {
				delete(b.topics, topic)
			}
		})
	}
}

func (b *LocalBus) Publish(msg Message) {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.topics[msg.Type])+len(b.topics[Wildcard]))
	subs = append(subs, b.topics[msg.Type]...)
	if msg.Type != Wildcard {
		subs = append(subs, b.topics[Wildcard]...)
	}
	b.mu.RUnlock()
	for _, s := range subs {
		b.dispatch(s, msg)
	}
}

func (b *LocalBus) dispatch(s *subscription, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("type", msg.Type).Interface("panic", r).Msg("bus event=handler_panic")
		}
	}()
	s.h(msg)
}

// Nop is a Bus that drops everything.
type Nop struct{}

func (Nop) Subscribe(string, Handler) func() { return func() {} }
func (Nop) Publish(Message)                  {}
