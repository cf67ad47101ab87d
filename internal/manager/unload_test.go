package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"skilld/internal/registry"
)

func TestVanishedDirectoryIsPruned(t *testing.T) {
	env := newTestEnv(t, nil)
	dir := env.writeSkill(t, "weather")
	env.writeSkill(t, "alarm")
	env.tick(t)

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	env.tick(t)
	env.tick(t)

	built := env.loader.built("weather")
	if len(built) != 1 || built[0].shutdowns.Load() != 1 {
		t.Fatalf("expected exactly one shutdown, got %d", built[0].shutdowns.Load())
	}
	if _, ok := env.m.Skill("weather"); ok {
		t.Fatalf("record should be removed")
	}
	msgs := env.rec.ByType(TopicShutdown)
	if len(msgs) != 1 || msgs[0].Data["id"] != "weather" || msgs[0].Data["path"] != dir {
		t.Fatalf("unexpected shutdown events: %+v", msgs)
	}
	if _, ok := env.m.Skill("alarm"); !ok {
		t.Fatalf("unrelated record removed")
	}
}

func TestMissingSkillsRootDoesNotPrune(t *testing.T) {
	env := newTestEnv(t, nil)
	env.writeSkill(t, "weather")
	env.tick(t)
	tmp := env.dir + ".moved"
	if err := os.Rename(env.dir, tmp); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Rename(tmp, env.dir) })
	env.tick(t)
	if _, ok := env.m.Skill("weather"); !ok {
		t.Fatalf("records must survive an unreadable skills root")
	}
	if env.loader.built("weather")[0].shutdowns.Load() != 0 {
		t.Fatalf("instance shut down on scan failure")
	}
}

func TestEntryPointRemovalUnloadsSkill(t *testing.T) {
	env := newTestEnv(t, nil)
	dir := env.writeSkill(t, "alpha")
	env.tick(t)
	if s := env.info(t, "alpha"); !s.Loaded {
		t.Fatalf("alpha not loaded: %+v", s)
	}

	if err := os.Remove(filepath.Join(dir, registry.EntryPoint)); err != nil {
		t.Fatal(err)
	}
	env.tick(t)
	env.tick(t)

	if _, ok := env.m.Skill("alpha"); ok {
		t.Fatalf("record kept after its entry point was removed")
	}
	built := env.loader.built("alpha")
	if len(built) != 1 || built[0].shutdowns.Load() != 1 {
		t.Fatalf("expected one construction and one shutdown, got %d constructions", len(built))
	}
	msgs := env.rec.ByType(TopicShutdown)
	if len(msgs) != 1 || msgs[0].Data["path"] != dir {
		t.Fatalf("unexpected shutdown events: %+v", msgs)
	}
	if _, err := env.m.Converse(context.Background(), "alpha", []string{"yes"}, "en-us"); !IsSkillNotFound(err) {
		t.Fatalf("converse should no longer reach alpha, got %v", err)
	}
}
