package manager

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"skilld/internal/bus"
	"skilld/internal/common/fsutil"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	DefaultScanInterval    = 2 * time.Second
	DefaultLoadTimeout     = 30 * time.Second
	DefaultConverseTimeout = 10 * time.Second
	DefaultPlatform        = "assistant.internet"
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// SkillsDir is scanned for skill directories. Required.
	SkillsDir string
	// Loader constructs instances. Required.
	Loader Loader
	// Bus carries control messages and lifecycle events. Defaults to a
	// private LocalBus.
	Bus bus.Bus
	// Updater is consulted on each tick when AutoUpdate is set. Optional.
	Updater    Updater
	AutoUpdate bool

	ScanInterval    time.Duration
	LoadTimeout     time.Duration
	ConverseTimeout time.Duration

	// Priority skills are installed if needed and loaded before the first scan.
	Priority []string
	// Blacklist names skills that are never constructed.
	Blacklist []string

	// Platform prefixes the "<platform>.connected" gate topic.
	Platform string
	// SkipConnectedGate opens the update gate without waiting for the
	// connected message.
	SkipConnectedGate bool

	Logger zerolog.Logger
	Now    func() time.Time
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) (*Manager, error) {
	if cfg.Loader == nil {
		return nil, errors.New("manager: loader is required")
	}
	if cfg.SkillsDir == "" {
		return nil, errors.New("manager: skills dir is required")
	}
	dir, err := fsutil.AbsPath(cfg.SkillsDir)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		skillsDir:       dir,
		loader:          cfg.Loader,
		bus:             cfg.Bus,
		updater:         cfg.Updater,
		autoUpdate:      cfg.AutoUpdate,
		scanInterval:    cfg.ScanInterval,
		loadTimeout:     cfg.LoadTimeout,
		converseTimeout: cfg.ConverseTimeout,
		priority:        append([]string(nil), cfg.Priority...),
		platform:        cfg.Platform,
		log:             cfg.Logger,
		now:             cfg.Now,
		records:         make(map[string]*skillRecord),
		blacklist:       make(map[string]struct{}),
		blacklistNoted:  make(map[string]struct{}),
		wake:            make(chan struct{}, 1),
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
	// Apply defaults if unset
	if m.bus == nil {
		m.bus = bus.NewLocal(cfg.Logger)
	}
	if m.scanInterval <= 0 {
		m.scanInterval = DefaultScanInterval
	}
	if m.loadTimeout <= 0 {
		m.loadTimeout = DefaultLoadTimeout
	}
	if m.converseTimeout <= 0 {
		m.converseTimeout = DefaultConverseTimeout
	}
	if m.platform == "" {
		m.platform = DefaultPlatform
	}
	if m.now == nil {
		m.now = time.Now
	}
	for _, id := range cfg.Blacklist {
		m.blacklist[id] = struct{}{}
	}
	m.connected.Store(cfg.SkipConnectedGate)
	m.startTime = m.now()
	return m, nil
}
