package manager

import (
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"skilld/internal/registry"
)

func TestTickIsIdempotentWithoutChanges(t *testing.T) {
	env := newTestEnv(t, nil)
	env.writeSkill(t, "weather")
	env.tick(t)
	env.tick(t)
	env.tick(t)

	if n := len(env.loader.built("weather")); n != 1 {
		t.Fatalf("expected 1 construction, got %d", n)
	}
	if n := env.rec.Count(TopicLoaded); n != 1 {
		t.Fatalf("expected 1 loaded event, got %d", n)
	}
	s := env.info(t, "weather")
	if !s.Loaded || !s.Active || s.State != StateReady || !s.LastModified.Equal(baseTime) {
		t.Fatalf("unexpected record: %+v", s)
	}
}

func TestLoadedEventPayload(t *testing.T) {
	env := newTestEnv(t, nil)
	dir := env.writeSkill(t, "weather")
	env.tick(t)
	msgs := env.rec.ByType(TopicLoaded)
	if len(msgs) != 1 {
		t.Fatalf("expected one loaded event, got %d", len(msgs))
	}
	d := msgs[0].Data
	if d["id"] != "weather" || d["path"] != dir || d["name"] != "Fake weather" || d["modified"] != baseTime.Unix() {
		t.Fatalf("unexpected payload: %+v", d)
	}
}

func TestContentChangeShutsDownBeforeConstructing(t *testing.T) {
	env := newTestEnv(t, nil)
	env.writeSkill(t, "weather")
	env.tick(t)
	env.touch(t, "weather", "main.py", time.Minute)
	env.tick(t)

	want := []string{"construct:weather#1", "shutdown:weather#1", "construct:weather#2"}
	if got := env.j.list(); !reflect.DeepEqual(got, want) {
		t.Fatalf("journal=%v want %v", got, want)
	}
	if n := env.rec.Count(TopicShutdown); n != 1 {
		t.Fatalf("expected 1 shutdown event, got %d", n)
	}
	if s := env.info(t, "weather"); !s.LastModified.Equal(baseTime.Add(time.Minute)) {
		t.Fatalf("lastModified not updated: %v", s.LastModified)
	}
}

func TestSettingsAndCompiledFilesDoNotTriggerReload(t *testing.T) {
	env := newTestEnv(t, nil)
	env.writeSkill(t, "weather")
	env.tick(t)
	env.touch(t, "weather", registry.SettingsFile, time.Hour)
	env.touch(t, "weather", "main.pyc", time.Hour)
	env.touch(t, "weather", ".swp", time.Hour)
	env.tick(t)
	if n := len(env.loader.built("weather")); n != 1 {
		t.Fatalf("expected no reload, got %d constructions", n)
	}
}

func TestDirectoryWithoutEntryPointIsIgnored(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := os.MkdirAll(filepath.Join(env.dir, "docs"), 0o755); err != nil {
		t.Fatal(err)
	}
	env.tick(t)
	if len(env.m.List()) != 0 {
		t.Fatalf("expected no records, got %+v", env.m.List())
	}
	if !env.m.Ready() {
		t.Fatalf("a directory without entry point is not pending")
	}
}

func TestBlacklistedSkillIsNeverConstructed(t *testing.T) {
	env := newTestEnv(t, func(c *ManagerConfig) { c.Blacklist = []string{"spam"} })
	env.writeSkill(t, "spam")
	env.writeSkill(t, "weather")
	env.tick(t)
	env.touch(t, "spam", "main.py", time.Minute)
	env.tick(t)

	if n := len(env.loader.built("spam")); n != 0 {
		t.Fatalf("blacklisted skill constructed %d times", n)
	}
	if _, ok := env.m.Skill("spam"); ok {
		t.Fatalf("blacklisted skill should have no record")
	}
	if !reflect.DeepEqual(env.loader.blacklist, []string{"spam"}) {
		t.Fatalf("loader did not receive blacklist: %v", env.loader.blacklist)
	}
}

func TestNonReloadableSkillIsKept(t *testing.T) {
	env := newTestEnv(t, nil)
	env.loader.tune = func(f *fakeInstance) { f.reloadable = false }
	env.writeSkill(t, "weather")
	env.tick(t)
	env.touch(t, "weather", "main.py", time.Minute)
	env.tick(t)
	env.tick(t)

	built := env.loader.built("weather")
	if len(built) != 1 || built[0].shutdowns.Load() != 0 {
		t.Fatalf("non-reloadable skill was rebuilt: %d constructions", len(built))
	}
}

func TestFailedLoadIsRetriedNextTick(t *testing.T) {
	env := newTestEnv(t, nil)
	env.loader.failures["weather"] = 1
	env.writeSkill(t, "weather")
	env.tick(t)

	s := env.info(t, "weather")
	if s.Loaded || s.State != StateError || s.LastError == "" {
		t.Fatalf("unexpected record after failure: %+v", s)
	}
	fails := env.rec.ByType(TopicLoadingFailure)
	if len(fails) != 1 || fails[0].Data["id"] != "weather" {
		t.Fatalf("expected one loading_failure event, got %+v", fails)
	}

	env.tick(t)
	s = env.info(t, "weather")
	if !s.Loaded || s.State != StateReady || s.LastError != "" {
		t.Fatalf("expected retry to succeed: %+v", s)
	}
}

func TestConstructorPanicIsContained(t *testing.T) {
	env := newTestEnv(t, nil)
	env.loader.panics["weather"] = true
	env.writeSkill(t, "weather")
	env.writeSkill(t, "alarm")
	env.tick(t)

	if s := env.info(t, "weather"); s.Loaded || s.State != StateError {
		t.Fatalf("unexpected record: %+v", s)
	}
	if s := env.info(t, "alarm"); !s.Loaded {
		t.Fatalf("other skills must still load: %+v", s)
	}
}

func TestConstructionTimeoutShutsDownLateInstance(t *testing.T) {
	env := newTestEnv(t, func(c *ManagerConfig) { c.LoadTimeout = 30 * time.Millisecond })
	env.loader.delay["slow"] = 200 * time.Millisecond
	env.writeSkill(t, "slow")
	env.tick(t)

	if s := env.info(t, "slow"); s.Loaded || s.State != StateError {
		t.Fatalf("expected timeout failure, got %+v", s)
	}
	waitFor(t, "late instance shutdown", func() bool {
		b := env.loader.built("slow")
		return len(b) == 1 && b[0].shutdowns.Load() == 1
	})
}

func TestShutdownFailureDuringReloadIsContained(t *testing.T) {
	env := newTestEnv(t, nil)
	var first atomic.Bool
	env.loader.tune = func(f *fakeInstance) {
		if first.CompareAndSwap(false, true) {
			f.shutdownPanic = true
		}
	}
	env.writeSkill(t, "weather")
	env.tick(t)
	env.touch(t, "weather", "main.py", time.Minute)
	env.tick(t)

	if n := len(env.loader.built("weather")); n != 2 {
		t.Fatalf("expected reconstruction despite shutdown panic, got %d", n)
	}
	if s := env.info(t, "weather"); !s.Loaded {
		t.Fatalf("expected loaded record: %+v", s)
	}
}

func TestLeakedInstanceIsReported(t *testing.T) {
	env := newTestEnv(t, nil)
	env.loader.tune = func(f *fakeInstance) { f.leak = true }
	env.writeSkill(t, "weather")
	env.tick(t)
	before := testutil.ToFloat64(skillLeaksTotal)
	env.touch(t, "weather", "main.py", time.Minute)
	env.tick(t)
	if got := testutil.ToFloat64(skillLeaksTotal) - before; got != 1 {
		t.Fatalf("expected one leak report, got %v", got)
	}
}

func TestInitializedEmittedOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	env.tick(t)
	if env.rec.Count(TopicInitialized) != 0 || env.m.Ready() {
		t.Fatalf("empty skills dir must not count as initialized")
	}
	env.writeSkill(t, "weather")
	env.tick(t)
	env.tick(t)
	env.touch(t, "weather", "main.py", time.Minute)
	env.tick(t)
	if n := env.rec.Count(TopicInitialized); n != 1 {
		t.Fatalf("expected exactly one initialized event, got %d", n)
	}
	if data := env.rec.ByType(TopicInitialized)[0].Data; len(data) != 0 {
		t.Fatalf("initialized carries no payload, got %v", data)
	}
	if !env.m.Ready() {
		t.Fatalf("manager should be ready")
	}
}
