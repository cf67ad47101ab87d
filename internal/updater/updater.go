// Package updater decides when the skill repository is consulted and applies
// installs and updates to the skills directory.
package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"skilld/internal/bus"
	"skilld/internal/common/fsutil"
	"skilld/internal/repo"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultInterval   = time.Hour
	DefaultRetryDelay = 5 * time.Minute
	DefaultMaxRetries = 10
	// StampFileName lives in the skills directory and marks the last
	// successful update pass.
	StampFileName = ".skilld-update"
)

// Prober reports connectivity and free space.
type Prober interface {
	Connected(ctx context.Context) bool
	DiskOK(ctx context.Context, path string) bool
}

// Locker is held around every repository mutation.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock() error
}

// Config configures a Scheduler.
type Config struct {
	Repo   repo.Repository
	Prober Prober
	Lock   Locker
	// Bus receives optional "speak" notices; nil disables them.
	Bus bus.Bus
	// Speak enables spoken notices about update results.
	Speak bool
	// Interval between successful passes. Default 1h.
	Interval time.Duration
	// RetryDelay after a failed pass. Default 5m.
	RetryDelay time.Duration
	// MaxRetries short retries after a required install failure before
	// falling back to Interval. Default 10.
	MaxRetries int
	// Required skills are installed when missing (defaults plus priority).
	Required []string
	// InstalledFile is the ledger of skill names already seen.
	InstalledFile string
	// StampFile defaults to <skills>/.skilld-update.
	StampFile string
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Scheduler owns the update schedule. All methods are safe for concurrent use.
type Scheduler struct {
	repo          repo.Repository
	prober        Prober
	lock          Locker
	bus           bus.Bus
	speak         bool
	interval      time.Duration
	retryDelay    time.Duration
	required      map[string]struct{}
	installedFile string
	stampFile     string
	log           zerolog.Logger
	now           func() time.Time

	mu        sync.Mutex
	next      time.Time
	retries   int
	retry     backoff.BackOff
	installed map[string]struct{}
}

// New builds a Scheduler and computes the first attempt time: the stamp
// file's mtime plus Interval when both the stamp and the ledger exist,
// otherwise immediately.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Repo == nil {
		return nil, errors.New("updater: repository is required")
	}
	s := &Scheduler{
		repo:          cfg.Repo,
		prober:        cfg.Prober,
		lock:          cfg.Lock,
		bus:           cfg.Bus,
		speak:         cfg.Speak,
		interval:      cfg.Interval,
		retryDelay:    cfg.RetryDelay,
		installedFile: cfg.InstalledFile,
		stampFile:     cfg.StampFile,
		log:           cfg.Logger,
		now:           cfg.Now,
		required:      make(map[string]struct{}),
		installed:     make(map[string]struct{}),
	}
	if s.prober == nil {
		s.prober = alwaysOnline{}
	}
	if s.lock == nil {
		s.lock = &mutexLocker{}
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.retryDelay <= 0 {
		s.retryDelay = DefaultRetryDelay
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.stampFile == "" {
		s.stampFile = filepath.Join(s.repo.SkillsDir(), StampFileName)
	}
	for _, n := range cfg.Required {
		if n != "" {
			s.required[n] = struct{}{}
		}
	}
	s.retry = backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryDelay), uint64(maxRetries))
	s.next = s.initialAttempt()
	return s, nil
}

func (s *Scheduler) initialAttempt() time.Time {
	now := s.now()
	if s.installedFile == "" || !fsutil.PathExists(s.installedFile) {
		return now
	}
	fi, err := os.Stat(s.stampFile)
	if err != nil {
		return now
	}
	return fi.ModTime().Add(s.interval)
}

// NextAttempt returns when the next pass is due.
func (s *Scheduler) NextAttempt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Retries returns the number of consecutive short retries taken.
func (s *Scheduler) Retries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retries
}

// ScheduleNow makes the next pass due immediately.
func (s *Scheduler) ScheduleNow() {
	s.mu.Lock()
	s.next = s.now()
	s.mu.Unlock()
	s.log.Info().Msg("updater event=scheduled_now")
}

// Due reports whether a pass should run at now.
func (s *Scheduler) Due(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !now.Before(s.next)
}

// MaybeUpdate runs Update when a pass is due. It reports whether a pass ran
// and succeeded.
func (s *Scheduler) MaybeUpdate(ctx context.Context, now time.Time) bool {
	if !s.Due(now) {
		return false
	}
	return s.Update(ctx, now)
}

// Update runs one pass unconditionally and reschedules.
func (s *Scheduler) Update(ctx context.Context, now time.Time) bool {
	if !s.prober.Connected(ctx) {
		s.setNext(now.Add(s.retryDelay))
		s.log.Info().Time("next", now.Add(s.retryDelay)).Msg("updater event=not_connected")
		s.say("I cannot update skills because I am not connected to the internet.")
		return false
	}
	if !s.prober.DiskOK(ctx, s.repo.SkillsDir()) {
		s.setNext(now.Add(s.retryDelay))
		s.log.Warn().Msg("updater event=low_disk")
		return false
	}

	failed, err := s.apply(ctx)
	if err != nil {
		// lock or listing trouble is not a required-skill failure and does
		// not count towards MaxRetries
		s.setNext(now.Add(s.retryDelay))
		s.log.Error().Err(err).Time("next", now.Add(s.retryDelay)).Msg("updater event=pass_failed")
		return false
	}
	if failed {
		s.onFailure(now)
		return false
	}

	s.mu.Lock()
	s.retries = 0
	s.retry.Reset()
	s.next = now.Add(s.interval)
	s.mu.Unlock()
	if err := fsutil.Touch(s.stampFile, now); err != nil {
		s.log.Warn().Err(err).Str("stamp", s.stampFile).Msg("updater event=stamp_failed")
	}
	s.log.Info().Time("next", now.Add(s.interval)).Msg("updater event=updated")
	s.say("Skills updated.")
	return true
}

func (s *Scheduler) onFailure(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.retry.NextBackOff()
	if d == backoff.Stop {
		s.retry.Reset()
		s.retries = 0
		s.next = now.Add(s.interval)
		s.log.Warn().Time("next", s.next).Msg("updater event=retries_exhausted")
		return
	}
	s.retries++
	s.next = now.Add(d)
	s.log.Warn().Int("retry", s.retries).Time("next", s.next).Msg("updater event=retry_scheduled")
}

func (s *Scheduler) setNext(t time.Time) {
	s.mu.Lock()
	s.next = t
	s.mu.Unlock()
}

// apply walks the repository under the update lock. It reports whether a
// required skill failed to install.
func (s *Scheduler) apply(ctx context.Context) (requiredFailed bool, err error) {
	if err := s.lock.Lock(ctx); err != nil {
		return false, fmt.Errorf("acquire update lock: %w", err)
	}
	defer func() {
		if uerr := s.lock.Unlock(); uerr != nil {
			s.log.Warn().Err(uerr).Msg("updater event=unlock_failed")
		}
	}()

	if err := s.loadInstalled(); err != nil {
		s.log.Warn().Err(err).Msg("updater event=ledger_read_failed")
	}
	skills, err := s.repo.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list repository: %w", err)
	}
	for _, sk := range skills {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		if !s.applyOne(ctx, sk) {
			requiredFailed = true
		}
	}
	if err := s.saveInstalled(); err != nil {
		s.log.Warn().Err(err).Msg("updater event=ledger_write_failed")
	}
	return requiredFailed, nil
}

// applyOne updates or installs one skill. It returns false only when a
// required skill could not be installed.
func (s *Scheduler) applyOne(ctx context.Context, sk repo.Skill) bool {
	name := sk.Name()
	if sk.IsLocal() {
		if err := sk.Update(ctx); err != nil {
			s.log.Warn().Str("skill", name).Err(err).Msg("updater event=update_failed")
		}
		if !s.seen(name) {
			if err := sk.InstallDeps(ctx); err != nil {
				s.log.Warn().Str("skill", name).Err(err).Msg("updater event=deps_failed")
			}
			s.markSeen(name)
		}
		return true
	}
	if _, ok := s.required[name]; !ok {
		return true
	}
	if err := sk.Install(ctx, "default"); err != nil {
		s.log.Error().Str("skill", name).Err(err).Msg("updater event=install_failed")
		return false
	}
	s.markSeen(name)
	return true
}

// EnsureInstalled installs name when it is not yet local and returns its
// path in the skills directory.
func (s *Scheduler) EnsureInstalled(ctx context.Context, name string) (string, error) {
	if err := s.lock.Lock(ctx); err != nil {
		return "", fmt.Errorf("acquire update lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	skills, err := s.repo.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list repository: %w", err)
	}
	for _, sk := range skills {
		if sk.Name() != name {
			continue
		}
		if sk.IsLocal() {
			return sk.Path(), nil
		}
		if err := sk.Install(ctx, "priority"); err != nil {
			return "", err
		}
		if err := s.loadInstalled(); err == nil {
			s.markSeen(name)
			_ = s.saveInstalled()
		}
		return sk.Path(), nil
	}
	return "", fmt.Errorf("skill %q not found in repository", name)
}

func (s *Scheduler) say(utterance string) {
	if !s.speak || s.bus == nil {
		return
	}
	s.bus.Publish(bus.NewMessage("speak", map[string]any{"utterance": utterance}))
}

type alwaysOnline struct{}

func (alwaysOnline) Connected(context.Context) bool      { return true }
func (alwaysOnline) DiskOK(context.Context, string) bool { return true }

type mutexLocker struct{ mu sync.Mutex }

func (l *mutexLocker) Lock(context.Context) error { l.mu.Lock(); return nil }
func (l *mutexLocker) Unlock() error              { l.mu.Unlock(); return nil }
