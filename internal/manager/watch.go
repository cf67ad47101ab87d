package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"skilld/internal/registry"
)

// Watch nudges the scan loop when files in the skills directory or in a
// skill's top level change. The periodic scan still runs; Watch only
// shortens the delay. It returns when ctx is done or the manager stops.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(m.skillsDir); err != nil {
		return fmt.Errorf("watch %s: %w", m.skillsDir, err)
	}
	if dirs, err := registry.ListSkillDirs(m.skillsDir); err == nil {
		for _, d := range dirs {
			m.watchDir(w, d)
		}
	}
	m.log.Info().Str("dir", m.skillsDir).Msg("manager event=watch_start")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.stopCh:
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if m.handleFSEvent(w, ev) {
				m.Nudge()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn().Err(err).Msg("manager event=watch_error")
		}
	}
}

func (m *Manager) watchDir(w *fsnotify.Watcher, dir string) {
	if err := w.Add(dir); err != nil {
		m.log.Debug().Str("dir", dir).Err(err).Msg("manager event=watch_add_failed")
	}
}

// handleFSEvent reports whether ev may change what a scan would do.
func (m *Manager) handleFSEvent(w *fsnotify.Watcher, ev fsnotify.Event) bool {
	base := filepath.Base(ev.Name)
	parent := filepath.Dir(ev.Name)
	if parent == m.skillsDir {
		// a skill directory appeared, vanished or was renamed
		if base[0] == '.' {
			return false
		}
		if ev.Has(fsnotify.Create) {
			if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
				m.watchDir(w, ev.Name)
			}
		}
		return true
	}
	return registry.Eligible(base)
}
