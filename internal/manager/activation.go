package manager

// AllSkills selects every record in Activate.
const AllSkills = "all"

// Deactivate disables every record with id and shuts its instance down. The
// records stay known but are skipped by reloads and conversation routing.
// It returns how many records went from active to inactive.
func (m *Manager) Deactivate(id string) (int, error) {
	recs := m.recordsByID(id)
	if len(recs) == 0 {
		return 0, ErrSkillNotFound(id)
	}
	n := 0
	for _, rec := range recs {
		if m.deactivate(rec) {
			n++
		}
	}
	return n, nil
}

// DeactivateAllExcept deactivates every record whose id is not keep,
// including records whose load failed. An unknown keep id changes nothing.
func (m *Manager) DeactivateAllExcept(keep string) (int, error) {
	if len(m.recordsByID(keep)) == 0 {
		m.log.Warn().Str("skill", keep).Msg("manager event=keep_unknown")
		return 0, ErrSkillNotFound(keep)
	}
	n := 0
	for _, rec := range m.allRecords() {
		if rec.id == keep {
			continue
		}
		if m.deactivate(rec) {
			n++
		}
	}
	return n, nil
}

func (m *Manager) deactivate(rec *skillRecord) bool {
	rec.op.Lock()
	defer rec.op.Unlock()

	m.mu.Lock()
	wasActive := rec.active
	inst := rec.instance
	rec.active = false
	rec.instance = nil
	rec.loaded = false
	rec.state = StateInactive
	m.mu.Unlock()

	if inst != nil {
		_ = m.safeShutdown(rec.id, inst)
		m.checkReleased(rec.id, inst)
	}
	if wasActive {
		m.log.Info().Str("skill", rec.id).Msg("manager event=deactivated")
	}
	return wasActive
}

// Activate re-enables inactive records with id, or all of them for
// AllSkills. The next scan constructs them again.
func (m *Manager) Activate(id string) (int, error) {
	var recs []*skillRecord
	if id == AllSkills {
		recs = m.allRecords()
	} else {
		recs = m.recordsByID(id)
		if len(recs) == 0 {
			return 0, ErrSkillNotFound(id)
		}
	}
	n := 0
	for _, rec := range recs {
		rec.op.Lock()
		m.mu.Lock()
		if !rec.active {
			rec.active = true
			rec.loaded = false
			rec.state = StateUnloaded
			n++
		}
		m.mu.Unlock()
		rec.op.Unlock()
	}
	if n > 0 {
		m.log.Info().Str("skill", id).Int("count", n).Msg("manager event=activated")
		m.Nudge()
	}
	return n, nil
}
