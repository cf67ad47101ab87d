package manager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"skilld/internal/registry"
	"skilld/pkg/types"
)

// reloadPath brings the record for dir in line with the directory content.
// It returns false when the directory is pending (no eligible files yet or a
// walk error) and should be looked at again later.
func (m *Manager) reloadPath(ctx context.Context, dir string) bool {
	id := filepath.Base(dir)
	if !registry.HasEntryPoint(dir) {
		return true
	}
	modified, err := registry.LastModified(dir)
	if err != nil {
		if errors.Is(err, registry.ErrNoEligibleFiles) {
			m.log.Debug().Str("skill", id).Msg("manager event=pending")
		} else {
			m.log.Warn().Str("skill", id).Err(err).Msg("manager event=mtime_failed")
		}
		return false
	}
	if m.isBlacklisted(id) {
		m.noteBlacklisted(id)
		return true
	}

	rec := m.recordFor(dir)
	var out outbox
	defer out.flush(m.bus)
	rec.op.Lock()
	defer rec.op.Unlock()

	m.mu.RLock()
	loaded, active, last, inst := rec.loaded, rec.active, rec.lastModified, rec.instance
	m.mu.RUnlock()

	if loaded && !modified.After(last) {
		return true
	}
	if !active {
		return true
	}
	if inst != nil {
		if r, ok := inst.(Reloadable); ok && !r.Reloadable() {
			m.log.Debug().Str("skill", id).Msg("manager event=reload_disabled")
			return true
		}
		m.log.Info().Str("skill", id).Time("modified", modified).Msg("manager event=reload")
		m.release(rec, inst, &out)
		m.reloadsTotal.Add(1)
		skillReloadsTotal.Inc()
	}
	m.load(ctx, rec, modified, &out)
	return true
}

// safeReloadPath keeps a panic in one directory from ending the scan.
func (m *Manager) safeReloadPath(ctx context.Context, dir string) (settled bool) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Str("path", dir).Interface("panic", r).Msg("manager event=reload_panic")
			settled = true
		}
	}()
	return m.reloadPath(ctx, dir)
}

func (m *Manager) noteBlacklisted(id string) {
	m.mu.Lock()
	_, seen := m.blacklistNoted[id]
	m.blacklistNoted[id] = struct{}{}
	m.mu.Unlock()
	if !seen {
		m.log.Info().Str("skill", id).Msg("manager event=blacklisted")
	}
}

// load constructs an instance for rec. Caller holds rec.op for writing.
func (m *Manager) load(ctx context.Context, rec *skillRecord, modified time.Time, out *outbox) {
	m.setState(rec, StateLoading)
	desc, err := registry.Describe(rec.path)
	var inst Instance
	if err == nil {
		inst, err = m.construct(ctx, desc, rec.id)
	}

	m.mu.Lock()
	rec.lastModified = modified
	if err != nil {
		rec.instance = nil
		rec.loaded = false
		rec.state = StateError
		rec.lastError = err.Error()
	} else {
		rec.instance = inst
		rec.loaded = true
		rec.state = StateReady
		rec.lastError = ""
		rec.loadedAt = m.now()
		rec.name = displayName(inst, desc)
	}
	name := rec.name
	m.mu.Unlock()

	if err != nil {
		skillLoadsTotal.WithLabelValues("error").Inc()
		m.log.Error().Str("skill", rec.id).Str("path", rec.path).Err(err).Msg("manager event=load_failed")
		out.add(TopicLoadingFailure, map[string]any{"path": rec.path, "id": rec.id})
		return
	}
	m.loadsTotal.Add(1)
	skillLoadsTotal.WithLabelValues("ok").Inc()
	m.log.Info().Str("skill", rec.id).Str("name", name).Msg("manager event=loaded")
	out.add(TopicLoaded, map[string]any{
		"path":     rec.path,
		"id":       rec.id,
		"name":     name,
		"modified": modified.Unix(),
	})
}

// construct calls the loader under the load timeout. A panic in the loader
// becomes an error; an instance delivered after the timeout is shut down.
func (m *Manager) construct(ctx context.Context, desc types.SkillDescriptor, id string) (Instance, error) {
	type result struct {
		inst Instance
		err  error
	}
	lctx, cancel := context.WithTimeout(ctx, m.loadTimeout)
	defer cancel()
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic in skill constructor: %v", r)}
			}
		}()
		inst, err := m.loader.Load(lctx, desc, m.bus, id, m.blacklistSlice())
		ch <- result{inst: inst, err: err}
	}()
	select {
	case r := <-ch:
		if r.err == nil && r.inst == nil {
			r.err = errors.New("loader returned no instance")
		}
		if r.err != nil && r.inst != nil {
			_ = m.safeShutdown(id, r.inst)
			r.inst = nil
		}
		return r.inst, r.err
	case <-lctx.Done():
		go func() {
			if r := <-ch; r.inst != nil {
				m.log.Warn().Str("skill", id).Msg("manager event=late_instance")
				_ = m.safeShutdown(id, r.inst)
			}
		}()
		return nil, fmt.Errorf("construct %s: %w", id, lctx.Err())
	}
}

func displayName(inst Instance, desc types.SkillDescriptor) string {
	if n, ok := inst.(Named); ok {
		if name := n.Name(); name != "" {
			return name
		}
	}
	if desc.Manifest.Name != "" {
		return desc.Manifest.Name
	}
	return desc.ID
}
