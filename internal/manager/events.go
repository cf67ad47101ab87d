package manager

import "skilld/internal/bus"

// Control topics consumed by the manager.
const (
	TopicUpdateRequest   = "skillmanager.update"
	TopicListRequest     = "skillmanager.list"
	TopicDeactivate      = "skillmanager.deactivate"
	TopicKeep            = "skillmanager.keep"
	TopicActivate        = "skillmanager.activate"
	TopicPaired          = "skillmanager.paired"
	TopicConverseRequest = "skill.converse.request"
)

// Topics produced by the manager.
const (
	TopicList             = "skills.list"
	TopicLoaded           = "skills.loaded"
	TopicLoadingFailure   = "skills.loading_failure"
	TopicShutdown         = "skills.shutdown"
	TopicInitialized      = "skills.initialized"
	TopicConverseResponse = "skill.converse.response"
	TopicConverseError    = "skill.converse.error"
)

// outbox collects messages produced while record locks are held. Handlers
// may call back into the manager, so delivery happens after unlocking:
//
//	var out outbox
//	defer out.flush(m.bus)
//	rec.op.Lock()
//	defer rec.op.Unlock()
type outbox struct{ msgs []bus.Message }

func (o *outbox) add(typ string, data map[string]any) {
	o.msgs = append(o.msgs, bus.NewMessage(typ, data))
}

func (o *outbox) flush(b bus.Bus) {
	for _, msg := range o.msgs {
		b.Publish(msg)
	}
	o.msgs = nil
}
