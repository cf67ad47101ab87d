// Package skillproc runs skills as supervised child processes that speak a
// line-delimited JSON protocol on stdin/stdout.
//
// Child to host:
//
//	{"event":"ready","name":"Weather"}
//	{"event":"emit","type":"speak","data":{"utterance":"hi"}}
//	{"id":3,"result":true}
//	{"id":4,"error":"boom"}
//
// Host to child:
//
//	{"id":3,"op":"converse","utterances":["..."],"lang":"en-us"}
//	{"op":"shutdown"}
//
// Anything the child writes to stderr is logged line by line.
package skillproc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"skilld/internal/bus"
	"skilld/internal/manager"
	"skilld/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultReadyTimeout = 20 * time.Second
	defaultStopGrace    = 3 * time.Second
)

// Config tunes a Loader.
type Config struct {
	// ReadyTimeout bounds the wait for the child's ready event.
	ReadyTimeout time.Duration
	// StopGrace is how long the child gets after the shutdown request and
	// again after SIGTERM before it is killed.
	StopGrace time.Duration
	// ExtraEnv is appended to every child's environment.
	ExtraEnv []string
	Logger   zerolog.Logger
}

// Loader implements manager.Loader.
type Loader struct {
	readyTimeout time.Duration
	stopGrace    time.Duration
	extraEnv     []string
	log          zerolog.Logger
}

// NewLoader constructs a Loader with defaults applied.
func NewLoader(cfg Config) *Loader {
	l := &Loader{
		readyTimeout: cfg.ReadyTimeout,
		stopGrace:    cfg.StopGrace,
		extraEnv:     append([]string(nil), cfg.ExtraEnv...),
		log:          cfg.Logger,
	}
	if l.readyTimeout <= 0 {
		l.readyTimeout = defaultReadyTimeout
	}
	if l.stopGrace <= 0 {
		l.stopGrace = defaultStopGrace
	}
	return l
}

var _ manager.Loader = (*Loader)(nil)

// Load starts the skill process for desc and waits for its ready event.
func (l *Loader) Load(ctx context.Context, desc types.SkillDescriptor, b bus.Bus, id string, blacklist []string) (manager.Instance, error) {
	if slices.Contains(blacklist, id) {
		return nil, manager.ErrBlacklisted
	}
	if strings.TrimSpace(desc.Manifest.Command) == "" {
		return nil, fmt.Errorf("skill %s: manifest has no command", id)
	}
	if b == nil {
		b = bus.Nop{}
	}
	cmd := exec.Command(resolveCommand(desc.Path, desc.Manifest.Command), desc.Manifest.Args...)
	cmd.Dir = desc.Path
	cmd.Env = l.environ(desc, id)

	log := l.log.With().Str("skill", id).Logger()
	p := newProcess(id, desc, cmd, b, log, l.stopGrace)
	if err := p.start(); err != nil {
		return nil, err
	}
	log.Info().Int("pid", cmd.Process.Pid).Msg("skillproc event=start")

	timer := time.NewTimer(l.readyTimeout)
	defer timer.Stop()
	select {
	case name := <-p.readyCh:
		if name != "" {
			p.name = name
		}
		log.Info().Str("name", p.name).Msg("skillproc event=ready")
		return p, nil
	case <-p.done:
		return nil, fmt.Errorf("skill %s exited before ready: %v; stderr tail: %s", id, p.exitErr(), p.stderr.Tail())
	case <-timer.C:
		p.kill()
		return nil, fmt.Errorf("skill %s not ready within %s", id, l.readyTimeout)
	case <-ctx.Done():
		p.kill()
		return nil, fmt.Errorf("skill %s: %w", id, ctx.Err())
	}
}

func (l *Loader) environ(desc types.SkillDescriptor, id string) []string {
	env := append(os.Environ(), l.extraEnv...)
	env = append(env, "SKILL_ID="+id, "SKILL_DIR="+desc.Path)
	keys := make([]string, 0, len(desc.Manifest.Env))
	for k := range desc.Manifest.Env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+desc.Manifest.Env[k])
	}
	return env
}

// resolveCommand makes relative commands with a separator relative to the
// skill directory; bare names are looked up on PATH by exec.
func resolveCommand(dir, command string) string {
	if filepath.IsAbs(command) || !strings.ContainsRune(command, filepath.Separator) {
		return command
	}
	return filepath.Join(dir, command)
}
