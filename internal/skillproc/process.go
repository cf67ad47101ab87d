package skillproc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"skilld/internal/bus"
	"skilld/pkg/types"
)

// maxLine bounds a single protocol line from a child.
const maxLine = 1 << 20

type frame struct {
	ID          int64          `json:"id,omitempty"`
	Event       string         `json:"event,omitempty"`
	Name        string         `json:"name,omitempty"`
	Type        string         `json:"type,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Result      *bool          `json:"result,omitempty"`
	Unsupported bool           `json:"unsupported,omitempty"`
	Error       string         `json:"error,omitempty"`
}

type request struct {
	ID         int64    `json:"id,omitempty"`
	Op         string   `json:"op"`
	Utterances []string `json:"utterances,omitempty"`
	Lang       string   `json:"lang,omitempty"`
}

// Process is a running skill. It implements manager.Instance plus the
// optional Name, Reloadable and Alive capabilities.
type Process struct {
	id         string
	name       string
	reloadable bool
	cmd        *exec.Cmd
	bus        bus.Bus
	log        zerolog.Logger
	stopGrace  time.Duration
	stderr     *lineLogger

	stdin   io.WriteCloser
	writeMu sync.Mutex

	nextID  atomic.Int64
	pmu     sync.Mutex
	pending map[int64]chan frame

	readyCh  chan string
	done     chan struct{}
	waitErr  error
	stopOnce sync.Once
	stopErr  error
}

func newProcess(id string, desc types.SkillDescriptor, cmd *exec.Cmd, b bus.Bus, log zerolog.Logger, grace time.Duration) *Process {
	return &Process{
		id:         id,
		name:       desc.Manifest.Name,
		reloadable: desc.Manifest.IsReloadable(),
		cmd:        cmd,
		bus:        b,
		log:        log,
		stopGrace:  grace,
		stderr:     &lineLogger{log: log},
		pending:    make(map[int64]chan frame),
		readyCh:    make(chan string, 1),
		done:       make(chan struct{}),
	}
}

func (p *Process) start() error {
	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("skill %s stdin: %w", p.id, err)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("skill %s stdout: %w", p.id, err)
	}
	p.cmd.Stderr = p.stderr
	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start skill %s: %w", p.id, err)
	}
	p.stdin = stdin
	go p.run(stdout)
	return nil
}

// run reads protocol frames until the child closes stdout, then reaps it.
func (p *Process) run(stdout io.Reader) {
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var f frame
		if err := json.Unmarshal(line, &f); err != nil {
			p.log.Debug().Str("line", string(line)).Msg("skillproc event=stdout")
			continue
		}
		p.handle(f)
	}
	if err := sc.Err(); err != nil {
		p.log.Warn().Err(err).Msg("skillproc event=read_failed")
		// keep draining so the child never blocks on a full pipe
		_, _ = io.Copy(io.Discard, stdout)
	}
	p.waitErr = p.cmd.Wait()
	p.stderr.Flush()
	close(p.done)
	p.failPending()
	p.log.Info().AnErr("exit", p.waitErr).Msg("skillproc event=exit")
}

func (p *Process) handle(f frame) {
	switch {
	case f.Event == "ready":
		select {
		case p.readyCh <- f.Name:
		default:
		}
	case f.Event == "emit":
		if f.Type == "" {
			return
		}
		msg := bus.NewMessage(f.Type, f.Data).WithContext("skill_id", p.id)
		p.bus.Publish(msg)
	case f.ID != 0:
		p.pmu.Lock()
		ch := p.pending[f.ID]
		delete(p.pending, f.ID)
		p.pmu.Unlock()
		if ch != nil {
			ch <- f
		}
	}
}

func (p *Process) failPending() {
	p.pmu.Lock()
	defer p.pmu.Unlock()
	for id, ch := range p.pending {
		close(ch)
		delete(p.pending, id)
	}
}

func (p *Process) send(req request) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err = p.stdin.Write(raw)
	return err
}

// Converse forwards utterances to the child and waits for its verdict.
// A child that answers {"unsupported":true} is treated as not handling it.
func (p *Process) Converse(ctx context.Context, utterances []string, lang string) (bool, error) {
	if !p.Alive() {
		return false, errors.New("skill process is not running")
	}
	id := p.nextID.Add(1)
	ch := make(chan frame, 1)
	p.pmu.Lock()
	p.pending[id] = ch
	p.pmu.Unlock()
	cleanup := func() {
		p.pmu.Lock()
		delete(p.pending, id)
		p.pmu.Unlock()
	}
	if err := p.send(request{ID: id, Op: "converse", Utterances: utterances, Lang: lang}); err != nil {
		cleanup()
		return false, fmt.Errorf("send converse: %w", err)
	}
	select {
	case f, ok := <-ch:
		return verdict(f, ok)
	case <-p.done:
		select {
		case f, ok := <-ch:
			return verdict(f, ok)
		default:
		}
		cleanup()
		return false, errors.New("skill process exited during converse")
	case <-ctx.Done():
		cleanup()
		return false, ctx.Err()
	}
}

func verdict(f frame, ok bool) (bool, error) {
	if !ok {
		return false, errors.New("skill process exited during converse")
	}
	if f.Error != "" {
		return false, errors.New(f.Error)
	}
	if f.Unsupported || f.Result == nil {
		return false, nil
	}
	return *f.Result, nil
}

// Shutdown asks the child to exit, then escalates to SIGTERM and SIGKILL.
// It returns an error only when the child had to be killed.
func (p *Process) Shutdown() error {
	p.stopOnce.Do(func() {
		if !p.Alive() {
			return
		}
		if err := p.send(request{Op: "shutdown"}); err != nil {
			p.log.Debug().Err(err).Msg("skillproc event=shutdown_send_failed")
		}
		_ = p.stdin.Close()
		if p.wait(p.stopGrace) {
			return
		}
		p.log.Warn().Msg("skillproc event=sigterm")
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
		if p.wait(p.stopGrace) {
			return
		}
		p.log.Warn().Msg("skillproc event=kill")
		p.kill()
		p.stopErr = fmt.Errorf("skill %s did not stop within %s and was killed", p.id, 2*p.stopGrace)
	})
	return p.stopErr
}

func (p *Process) kill() {
	_ = p.cmd.Process.Kill()
	<-p.done
}

func (p *Process) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.done:
		return true
	case <-t.C:
		return false
	}
}

func (p *Process) exitErr() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

// Alive reports whether the child has not exited yet.
func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Process) Name() string     { return p.name }
func (p *Process) Reloadable() bool { return p.reloadable }

// PID returns the child's process id.
func (p *Process) PID() int { return p.cmd.Process.Pid }
