package manager

import "fmt"

// release shuts down inst ahead of a rebuild. Caller holds rec.op for
// writing, so no conversation is in flight.
func (m *Manager) release(rec *skillRecord, inst Instance, out *outbox) {
	m.mu.Lock()
	rec.instance = nil
	rec.loaded = false
	rec.state = StateDraining
	m.mu.Unlock()

	if err := m.safeShutdown(rec.id, inst); err != nil {
		m.mu.Lock()
		rec.lastError = err.Error()
		m.mu.Unlock()
	}
	m.checkReleased(rec.id, inst)
	out.add(TopicShutdown, map[string]any{"path": rec.path, "id": rec.id})
}

// safeShutdown calls inst.Shutdown, turning a panic into an error. Errors
// are logged here.
func (m *Manager) safeShutdown(id string, inst Instance) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during shutdown: %v", r)
		}
		if err != nil {
			skillShutdownsTotal.WithLabelValues("error").Inc()
			m.log.Error().Str("skill", id).Err(err).Msg("manager event=shutdown_failed")
			return
		}
		skillShutdownsTotal.WithLabelValues("ok").Inc()
	}()
	return inst.Shutdown()
}

// checkReleased warns when an instance still reports itself alive after
// shutdown.
func (m *Manager) checkReleased(id string, inst Instance) {
	a, ok := inst.(Aliver)
	if !ok {
		return
	}
	alive := func() (v bool) {
		defer func() {
			if recover() != nil {
				v = false
			}
		}()
		return a.Alive()
	}()
	if alive {
		skillLeaksTotal.Inc()
		m.log.Warn().Str("skill", id).Msg("manager event=instance_leak")
	}
}

// prune removes the records whose directories are not in dirs.
func (m *Manager) prune(dirs []string) {
	seen := make(map[string]struct{}, len(dirs))
	for _, d := range dirs {
		seen[d] = struct{}{}
	}
	m.mu.RLock()
	var gone []*skillRecord
	for path, rec := range m.records {
		if _, ok := seen[path]; !ok {
			gone = append(gone, rec)
		}
	}
	m.mu.RUnlock()
	sortRecords(gone)
	for _, rec := range gone {
		m.remove(rec)
	}
}

func (m *Manager) remove(rec *skillRecord) {
	var out outbox
	defer out.flush(m.bus)
	rec.op.Lock()
	defer rec.op.Unlock()

	m.mu.Lock()
	inst := rec.instance
	rec.instance = nil
	rec.loaded = false
	rec.state = StateUnloaded
	delete(m.records, rec.path)
	m.mu.Unlock()

	if inst != nil {
		_ = m.safeShutdown(rec.id, inst)
		m.checkReleased(rec.id, inst)
	}
	m.log.Info().Str("skill", rec.id).Str("path", rec.path).Msg("manager event=removed")
	out.add(TopicShutdown, map[string]any{"path": rec.path, "id": rec.id})
}

// stopRecord shuts down rec's instance during Stop.
func (m *Manager) stopRecord(rec *skillRecord) {
	rec.op.Lock()
	defer rec.op.Unlock()
	m.mu.Lock()
	inst := rec.instance
	rec.instance = nil
	rec.loaded = false
	if rec.active {
		rec.state = StateUnloaded
	}
	m.mu.Unlock()
	if inst != nil {
		_ = m.safeShutdown(rec.id, inst)
		m.checkReleased(rec.id, inst)
	}
}
