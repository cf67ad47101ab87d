package manager

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"skilld/internal/bus"
)

// Manager owns the skill records of one skills directory.
type Manager struct {
	mu             sync.RWMutex
	records        map[string]*skillRecord // key: absolute path
	blacklistNoted map[string]struct{}
	unsubs         []func()

	skillsDir       string
	loader          Loader
	bus             bus.Bus
	updater         Updater
	autoUpdate      bool
	scanInterval    time.Duration
	loadTimeout     time.Duration
	converseTimeout time.Duration
	priority        []string
	blacklist       map[string]struct{}
	platform        string
	log             zerolog.Logger
	now             func() time.Time

	connected   atomic.Bool
	initialized atomic.Bool
	started     atomic.Bool
	wake        chan struct{}
	stopCh      chan struct{}
	stopOnce    sync.Once
	doneCh      chan struct{}

	startTime    time.Time
	loadsTotal   atomic.Uint64
	reloadsTotal atomic.Uint64
}

// SkillsDir returns the absolute skills directory.
func (m *Manager) SkillsDir() string { return m.skillsDir }

// Bus returns the bus the manager publishes on.
func (m *Manager) Bus() bus.Bus { return m.bus }

// Ready reports whether the first full scan has settled.
func (m *Manager) Ready() bool { return m.initialized.Load() }

// Connected reports whether the update gate is open.
func (m *Manager) Connected() bool { return m.connected.Load() }

func (m *Manager) isBlacklisted(id string) bool {
	_, ok := m.blacklist[id]
	return ok
}

func (m *Manager) blacklistSlice() []string {
	out := make([]string, 0, len(m.blacklist))
	for id := range m.blacklist {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Nudge asks the scan loop to run its next tick now. Calls coalesce.
func (m *Manager) Nudge() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
