package manager

import (
	"context"
	"sync"
	"time"

	"skilld/internal/bus"
	"skilld/pkg/types"
)

// State represents the lifecycle state of a skill record.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateDraining State = "draining"
	StateInactive State = "inactive"
	StateError    State = "error"
)

// Instance is a constructed, running skill.
type Instance interface {
	Converse(ctx context.Context, utterances []string, lang string) (bool, error)
	Shutdown() error
}

// Named instances report a display name.
type Named interface{ Name() string }

// Reloadable instances may veto hot reload by returning false.
type Reloadable interface{ Reloadable() bool }

// Aliver instances can report whether they still hold resources after
// Shutdown returned.
type Aliver interface{ Alive() bool }

// Loader constructs skill instances.
type Loader interface {
	Load(ctx context.Context, desc types.SkillDescriptor, b bus.Bus, id string, blacklist []string) (Instance, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, desc types.SkillDescriptor, b bus.Bus, id string, blacklist []string) (Instance, error)

func (f LoaderFunc) Load(ctx context.Context, desc types.SkillDescriptor, b bus.Bus, id string, blacklist []string) (Instance, error) {
	return f(ctx, desc, b, id, blacklist)
}

// Updater schedules repository passes. Implemented by updater.Scheduler.
type Updater interface {
	MaybeUpdate(ctx context.Context, now time.Time) bool
	ScheduleNow()
	NextAttempt() time.Time
	Retries() int
	EnsureInstalled(ctx context.Context, name string) (string, error)
}

// skillRecord is the manager's view of one skill directory.
type skillRecord struct {
	// op is held for writing during transitions and for reading during
	// conversations.
	op   sync.RWMutex
	id   string
	path string

	// guarded by Manager.mu
	name         string
	lastModified time.Time
	loaded       bool
	active       bool
	instance     Instance
	state        State
	loadedAt     time.Time
	lastError    string
}

// SkillInfo is a read-only projection of a skill record.
type SkillInfo struct {
	ID           string
	Name         string
	Path         string
	State        State
	Active       bool
	Loaded       bool
	LastModified time.Time
	LoadedAt     time.Time
	LastError    string
}
