package manager

import (
	"path/filepath"
	"sort"
)

// recordFor returns the record for path, creating an active, unloaded one on
// first sight.
func (m *Manager) recordFor(path string) *skillRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.records[path]
	if rec == nil {
		rec = &skillRecord{id: filepath.Base(path), path: path, active: true, state: StateUnloaded}
		m.records[path] = rec
	}
	return rec
}

// recordsByID returns every record whose id matches.
func (m *Manager) recordsByID(id string) []*skillRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*skillRecord
	for _, rec := range m.records {
		if rec.id == id {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out
}

func (m *Manager) allRecords() []*skillRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*skillRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sortRecords(out)
	return out
}

func sortRecords(recs []*skillRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].id != recs[j].id {
			return recs[i].id < recs[j].id
		}
		return recs[i].path < recs[j].path
	})
}

func (m *Manager) setState(rec *skillRecord, st State) {
	m.mu.Lock()
	rec.state = st
	m.mu.Unlock()
}

// infoLocked projects rec. Caller holds m.mu.
func infoLocked(rec *skillRecord) SkillInfo {
	name := rec.name
	if name == "" {
		name = rec.id
	}
	return SkillInfo{
		ID:           rec.id,
		Name:         name,
		Path:         rec.path,
		State:        rec.state,
		Active:       rec.active,
		Loaded:       rec.loaded,
		LastModified: rec.lastModified,
		LoadedAt:     rec.loadedAt,
		LastError:    rec.lastError,
	}
}

// List returns a snapshot of every record, sorted by id.
func (m *Manager) List() []SkillInfo {
	recs := m.allRecords()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SkillInfo, 0, len(recs))
	for _, rec := range recs {
		out = append(out, infoLocked(rec))
	}
	return out
}

// Skill returns the snapshot of the first record with id.
func (m *Manager) Skill(id string) (SkillInfo, bool) {
	recs := m.recordsByID(id)
	if len(recs) == 0 {
		return SkillInfo{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return infoLocked(recs[0]), true
}
