package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"skilld/internal/bus"
	"skilld/internal/common/fsutil"
	"skilld/internal/registry"
)

// Start subscribes to control messages and launches the scan loop. Priority
// skills are loaded by the loop before its first tick; Start itself does not
// block on them.
func (m *Manager) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return errors.New("manager already started")
	}
	m.subscribe()
	m.removeGitLocks()
	m.log.Info().Str("dir", m.skillsDir).Dur("interval", m.scanInterval).Msg("manager event=start")
	go m.run(ctx)
	return nil
}

// Stop ends the scan loop after its current tick and shuts down every live
// instance once. It is safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		if m.started.Load() {
			<-m.doneCh
		}
		m.unsubscribe()
		for _, rec := range m.allRecords() {
			m.stopRecord(rec)
		}
		m.log.Info().Msg("manager event=stopped")
	})
}

// Done is closed when the scan loop has exited.
func (m *Manager) Done() <-chan struct{} { return m.doneCh }

func (m *Manager) stopping() bool {
	select {
	case <-m.stopCh:
		return true
	default:
		return false
	}
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.doneCh)
	m.loadPriority(ctx)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-m.wake:
		}
		if m.stopping() || ctx.Err() != nil {
			return
		}
		m.tick(ctx)
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(m.scanInterval)
	}
}

// tick runs one scan: update check, per-directory reload, initialized
// notice, then pruning of records whose directory vanished or lost its
// entry point.
func (m *Manager) tick(ctx context.Context) {
	start := time.Now()
	defer func() { scanDuration.Observe(time.Since(start).Seconds()) }()

	m.maybeUpdate(ctx)

	dirs, err := registry.ListSkillDirs(m.skillsDir)
	if err != nil {
		m.log.Warn().Err(err).Msg("manager event=scan_failed")
		return
	}
	skills := make([]string, 0, len(dirs))
	pending := 0
	for _, dir := range dirs {
		if !registry.HasEntryPoint(dir) {
			continue
		}
		skills = append(skills, dir)
		if !m.safeReloadPath(ctx, dir) {
			pending++
		}
	}
	if len(dirs) > 0 && pending == 0 && m.initialized.CompareAndSwap(false, true) {
		m.log.Info().Int("skills", len(skills)).Msg("manager event=initialized")
		m.bus.Publish(bus.NewMessage(TopicInitialized, nil))
	}
	m.prune(skills)
	m.refreshGauges()
}

func (m *Manager) maybeUpdate(ctx context.Context) {
	if !m.autoUpdate || m.updater == nil {
		return
	}
	if !m.connected.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("manager event=update_panic")
		}
	}()
	if m.updater.MaybeUpdate(ctx, m.now()) {
		updatePassesTotal.Inc()
	}
}

// loadPriority installs (when needed) and loads the priority skills.
func (m *Manager) loadPriority(ctx context.Context) {
	for _, name := range m.priority {
		if ctx.Err() != nil || m.stopping() {
			return
		}
		if m.isBlacklisted(name) {
			m.noteBlacklisted(name)
			continue
		}
		path := filepath.Join(m.skillsDir, name)
		if m.updater != nil {
			if _, err := m.updater.EnsureInstalled(ctx, name); err != nil {
				m.log.Error().Str("skill", name).Err(err).Msg("manager event=priority_install_failed")
			}
		}
		if !fsutil.PathExists(path) {
			m.log.Error().Str("skill", name).Msg("manager event=priority_missing")
			continue
		}
		m.safeReloadPath(ctx, path)
	}
}

// removeGitLocks deletes index.lock files left in skill repositories by an
// abrupt shutdown.
func (m *Manager) removeGitLocks() {
	dirs, err := registry.ListSkillDirs(m.skillsDir)
	if err != nil {
		return
	}
	for _, d := range dirs {
		lock := filepath.Join(d, ".git", "index.lock")
		if !fsutil.PathExists(lock) {
			continue
		}
		if err := os.Remove(lock); err != nil {
			m.log.Warn().Str("path", lock).Err(err).Msg("manager event=git_lock_remove_failed")
			continue
		}
		m.log.Warn().Str("path", lock).Msg("manager event=git_lock_removed")
	}
}
