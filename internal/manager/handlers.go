package manager

import (
	"context"

	"skilld/internal/bus"
)

func (m *Manager) subscribe() {
	subs := []struct {
		topic string
		h     bus.Handler
	}{
		{TopicUpdateRequest, m.handleUpdate},
		{TopicListRequest, m.handleList},
		{TopicDeactivate, m.handleDeactivate},
		{TopicKeep, m.handleKeep},
		{TopicActivate, m.handleActivate},
		{TopicConverseRequest, m.handleConverse},
		{TopicPaired, m.handlePaired},
		{m.ConnectedTopic(), m.handleConnected},
	}
	unsubs := make([]func(), 0, len(subs))
	for _, s := range subs {
		unsubs = append(unsubs, m.bus.Subscribe(s.topic, s.h))
	}
	m.mu.Lock()
	m.unsubs = append(m.unsubs, unsubs...)
	m.mu.Unlock()
}

func (m *Manager) unsubscribe() {
	m.mu.Lock()
	unsubs := m.unsubs
	m.unsubs = nil
	m.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

// ConnectedTopic is the message that opens the update gate.
func (m *Manager) ConnectedTopic() string { return m.platform + ".connected" }

// UpdateNow makes the next scan run an update pass.
func (m *Manager) UpdateNow() error {
	if m.updater == nil || !m.autoUpdate {
		return ErrUpdatesDisabled
	}
	m.updater.ScheduleNow()
	m.Nudge()
	return nil
}

// SubscribeEvents delivers every bus message to h until the returned
// function is called.
func (m *Manager) SubscribeEvents(h func(bus.Message)) func() {
	return m.bus.Subscribe(bus.Wildcard, h)
}

func (m *Manager) handleUpdate(bus.Message) {
	if err := m.UpdateNow(); err != nil {
		m.log.Info().Err(err).Msg("manager event=update_request_ignored")
	}
}

func (m *Manager) handleList(msg bus.Message) {
	data := make(map[string]any)
	for _, s := range m.List() {
		data[s.ID] = map[string]any{"active": s.Active && s.Loaded, "id": s.ID}
	}
	m.bus.Publish(msg.Reply(TopicList, data))
}

func (m *Manager) handleDeactivate(msg bus.Message) {
	id := msg.String("skill")
	if _, err := m.Deactivate(id); err != nil {
		m.log.Warn().Str("skill", id).Err(err).Msg("manager event=deactivate_ignored")
	}
}

func (m *Manager) handleKeep(msg bus.Message) {
	_, _ = m.DeactivateAllExcept(msg.String("skill"))
}

func (m *Manager) handleActivate(msg bus.Message) {
	id := msg.String("skill")
	if _, err := m.Activate(id); err != nil {
		m.log.Warn().Str("skill", id).Err(err).Msg("manager event=activate_ignored")
	}
}

func (m *Manager) handleConverse(msg bus.Message) {
	id := msg.String("skill_id")
	lang := msg.String("lang")
	if lang == "" {
		lang = "en-us"
	}
	ok, err := m.Converse(context.Background(), id, msg.Strings("utterances"), lang)
	if err != nil {
		m.bus.Publish(msg.Reply(TopicConverseError, map[string]any{
			"skill_id": id,
			"error":    converseErrorText(err),
		}))
		return
	}
	m.bus.Publish(msg.Reply(TopicConverseResponse, map[string]any{
		"skill_id": id,
		"result":   ok,
	}))
}

func (m *Manager) handleConnected(bus.Message) {
	if m.connected.CompareAndSwap(false, true) {
		m.log.Info().Msg("manager event=connected")
		m.Nudge()
	}
}

func (m *Manager) handlePaired(bus.Message) {
	var ids []string
	for _, s := range m.List() {
		ids = append(ids, s.ID)
	}
	m.log.Info().Strs("skills", ids).Msg("manager event=paired_manifest")
}
