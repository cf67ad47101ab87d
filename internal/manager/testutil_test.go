package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"skilld/internal/bus"
	"skilld/internal/registry"
	"skilld/pkg/types"
)

// journal records construct/shutdown calls in order across instances.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) count(entry string) int {
	n := 0
	for _, e := range j.list() {
		if e == entry {
			n++
		}
	}
	return n
}

// fakeInstance is an in-memory Instance with optional capabilities.
type fakeInstance struct {
	id         string
	gen        int
	name       string
	reloadable bool
	leak       bool
	j          *journal

	converse      func(ctx context.Context, utterances []string, lang string) (bool, error)
	shutdownErr   error
	shutdownPanic bool

	shutdowns atomic.Int32
}

func (f *fakeInstance) Converse(ctx context.Context, utterances []string, lang string) (bool, error) {
	if f.converse != nil {
		return f.converse(ctx, utterances, lang)
	}
	return len(utterances) > 0 && utterances[0] == "yes", nil
}

func (f *fakeInstance) Shutdown() error {
	f.shutdowns.Add(1)
	f.j.add("shutdown:%s#%d", f.id, f.gen)
	if f.shutdownPanic {
		panic("shutdown exploded")
	}
	return f.shutdownErr
}

func (f *fakeInstance) Name() string     { return f.name }
func (f *fakeInstance) Reloadable() bool { return f.reloadable }
func (f *fakeInstance) Alive() bool      { return f.leak && f.shutdowns.Load() > 0 }

// fakeLoader builds fakeInstances. Behaviour per skill id is tuned through
// the exported-looking maps before the manager runs.
type fakeLoader struct {
	j *journal

	mu        sync.Mutex
	gens      map[string]int
	instances map[string][]*fakeInstance
	failures  map[string]int // remaining failures per id
	panics    map[string]bool
	delay     map[string]time.Duration
	tune      func(*fakeInstance)
	blacklist []string
}

func newFakeLoader(j *journal) *fakeLoader {
	return &fakeLoader{
		j:         j,
		gens:      make(map[string]int),
		instances: make(map[string][]*fakeInstance),
		failures:  make(map[string]int),
		panics:    make(map[string]bool),
		delay:     make(map[string]time.Duration),
	}
}

func (l *fakeLoader) Load(ctx context.Context, desc types.SkillDescriptor, b bus.Bus, id string, blacklist []string) (Instance, error) {
	l.mu.Lock()
	l.blacklist = blacklist
	delay := l.delay[id]
	if l.panics[id] {
		l.mu.Unlock()
		panic("constructor exploded")
	}
	if l.failures[id] > 0 {
		l.failures[id]--
		l.mu.Unlock()
		l.j.add("fail:%s", id)
		return nil, errors.New("constructor failed")
	}
	l.gens[id]++
	inst := &fakeInstance{id: id, gen: l.gens[id], name: "Fake " + desc.Manifest.Name, reloadable: true, j: l.j}
	if l.tune != nil {
		l.tune(inst)
	}
	l.instances[id] = append(l.instances[id], inst)
	l.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	l.j.add("construct:%s#%d", id, inst.gen)
	return inst, nil
}

func (l *fakeLoader) built(id string) []*fakeInstance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*fakeInstance(nil), l.instances[id]...)
}

type testEnv struct {
	m      *Manager
	loader *fakeLoader
	j      *journal
	bus    *bus.LocalBus
	rec    *bus.Recorder
	dir    string
}

func newTestEnv(t *testing.T, mutate func(*ManagerConfig)) *testEnv {
	t.Helper()
	j := &journal{}
	env := &testEnv{
		loader: newFakeLoader(j),
		j:      j,
		bus:    bus.NewLocal(zerolog.Nop()),
		rec:    bus.NewRecorder(),
		dir:    t.TempDir(),
	}
	env.bus.Subscribe(bus.Wildcard, env.rec.Handle)
	cfg := ManagerConfig{
		SkillsDir:    env.dir,
		Loader:       env.loader,
		Bus:          env.bus,
		ScanInterval: 20 * time.Millisecond,
		Logger:       zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	env.m = m
	t.Cleanup(m.Stop)
	return env
}

var baseTime = time.Now().Add(-24 * time.Hour).Truncate(time.Second)

// writeSkill creates a skill directory whose files are dated baseTime.
func (e *testEnv) writeSkill(t *testing.T, id string) string {
	t.Helper()
	dir := filepath.Join(e.dir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, content := range map[string]string{
		registry.EntryPoint: fmt.Sprintf("name = %q\ncommand = \"./run\"\n", id),
		"main.py":           "print('hi')\n",
	} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := os.Chtimes(p, baseTime, baseTime); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	return dir
}

// touch writes file under skill id and dates it at offset after baseTime.
func (e *testEnv) touch(t *testing.T, id, file string, offset time.Duration) {
	t.Helper()
	p := filepath.Join(e.dir, id, file)
	if err := os.WriteFile(p, []byte(offset.String()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	when := baseTime.Add(offset)
	if err := os.Chtimes(p, when, when); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func (e *testEnv) tick(t *testing.T) {
	t.Helper()
	e.m.tick(testCtx(t))
}

func (e *testEnv) info(t *testing.T, id string) SkillInfo {
	t.Helper()
	s, ok := e.m.Skill(id)
	if !ok {
		t.Fatalf("no record for %s", id)
	}
	return s
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fakeUpdater struct {
	mu        sync.Mutex
	calls     int
	scheduled int
	ensured   []string
	ensureErr error
	result    bool
}

func (u *fakeUpdater) MaybeUpdate(context.Context, time.Time) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	return u.result
}

func (u *fakeUpdater) ScheduleNow() {
	u.mu.Lock()
	u.scheduled++
	u.mu.Unlock()
}

func (u *fakeUpdater) NextAttempt() time.Time { return baseTime }
func (u *fakeUpdater) Retries() int           { return 0 }

func (u *fakeUpdater) EnsureInstalled(_ context.Context, name string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ensured = append(u.ensured, name)
	return "", u.ensureErr
}

func (u *fakeUpdater) snapshot() (calls, scheduled int, ensured []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls, u.scheduled, append([]string(nil), u.ensured...)
}
