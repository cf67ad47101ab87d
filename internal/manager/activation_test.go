package manager

import (
	"reflect"
	"testing"
	"time"
)

func TestDeactivateShutsDownAndFreezesReload(t *testing.T) {
	env := newTestEnv(t, nil)
	env.writeSkill(t, "weather")
	env.tick(t)

	n, err := env.m.Deactivate("weather")
	if err != nil || n != 1 {
		t.Fatalf("Deactivate: n=%d err=%v", n, err)
	}
	s := env.info(t, "weather")
	if s.Active || s.Loaded || s.State != StateInactive {
		t.Fatalf("unexpected record: %+v", s)
	}
	if env.loader.built("weather")[0].shutdowns.Load() != 1 {
		t.Fatalf("instance not shut down")
	}

	env.touch(t, "weather", "main.py", time.Minute)
	env.tick(t)
	env.tick(t)
	if n := len(env.loader.built("weather")); n != 1 {
		t.Fatalf("inactive skill reloaded: %d constructions", n)
	}

	// a second deactivate is a no-op
	n, err = env.m.Deactivate("weather")
	if err != nil || n != 0 {
		t.Fatalf("second Deactivate: n=%d err=%v", n, err)
	}
	if env.loader.built("weather")[0].shutdowns.Load() != 1 {
		t.Fatalf("instance shut down twice")
	}
}

func TestActivateReconstructsOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	env.writeSkill(t, "weather")
	env.tick(t)
	if _, err := env.m.Deactivate("weather"); err != nil {
		t.Fatal(err)
	}

	n, err := env.m.Activate("weather")
	if err != nil || n != 1 {
		t.Fatalf("Activate: n=%d err=%v", n, err)
	}
	env.tick(t)
	env.tick(t)

	want := []string{"construct:weather#1", "shutdown:weather#1", "construct:weather#2"}
	if got := env.j.list(); !reflect.DeepEqual(got, want) {
		t.Fatalf("journal=%v want %v", got, want)
	}
	if s := env.info(t, "weather"); !s.Active || !s.Loaded {
		t.Fatalf("unexpected record: %+v", s)
	}
}

func TestActivateAlreadyActiveIsNoop(t *testing.T) {
	env := newTestEnv(t, nil)
	env.writeSkill(t, "weather")
	env.tick(t)
	n, err := env.m.Activate("weather")
	if err != nil || n != 0 {
		t.Fatalf("Activate: n=%d err=%v", n, err)
	}
	env.tick(t)
	if len(env.loader.built("weather")) != 1 {
		t.Fatalf("active skill reconstructed")
	}
}

func TestActivateAll(t *testing.T) {
	env := newTestEnv(t, nil)
	env.writeSkill(t, "weather")
	env.writeSkill(t, "alarm")
	env.writeSkill(t, "timer")
	env.tick(t)
	if _, err := env.m.DeactivateAllExcept("timer"); err != nil {
		t.Fatal(err)
	}
	n, err := env.m.Activate(AllSkills)
	if err != nil || n != 2 {
		t.Fatalf("Activate(all): n=%d err=%v", n, err)
	}
	env.tick(t)
	for _, id := range []string{"weather", "alarm", "timer"} {
		if s := env.info(t, id); !s.Loaded || !s.Active {
			t.Fatalf("%s not loaded after activate all: %+v", id, s)
		}
	}
	if len(env.loader.built("timer")) != 1 {
		t.Fatalf("kept skill was reconstructed")
	}
}

func TestDeactivateAllExcept(t *testing.T) {
	env := newTestEnv(t, nil)
	env.writeSkill(t, "weather")
	env.writeSkill(t, "alarm")
	env.writeSkill(t, "timer")
	env.tick(t)

	n, err := env.m.DeactivateAllExcept("alarm")
	if err != nil || n != 2 {
		t.Fatalf("DeactivateAllExcept: n=%d err=%v", n, err)
	}
	if s := env.info(t, "alarm"); !s.Active || !s.Loaded {
		t.Fatalf("kept skill changed: %+v", s)
	}
	for _, id := range []string{"weather", "timer"} {
		if s := env.info(t, id); s.Active || s.Loaded {
			t.Fatalf("%s still active: %+v", id, s)
		}
	}
}

func TestDeactivateAllExceptUnknownChangesNothing(t *testing.T) {
	env := newTestEnv(t, nil)
	env.writeSkill(t, "weather")
	env.tick(t)
	n, err := env.m.DeactivateAllExcept("ghost")
	if !IsSkillNotFound(err) || n != 0 {
		t.Fatalf("expected not found, got n=%d err=%v", n, err)
	}
	if s := env.info(t, "weather"); !s.Active || !s.Loaded {
		t.Fatalf("record changed: %+v", s)
	}
}

func TestActivationUnknownID(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.m.Deactivate("ghost"); !IsSkillNotFound(err) {
		t.Fatalf("Deactivate: expected not found, got %v", err)
	}
	if _, err := env.m.Activate("ghost"); !IsSkillNotFound(err) {
		t.Fatalf("Activate: expected not found, got %v", err)
	}
}

func TestDeactivateAllExceptCoversFailedLoads(t *testing.T) {
	env := newTestEnv(t, nil)
	env.loader.failures["beta"] = 1
	env.writeSkill(t, "alpha")
	env.writeSkill(t, "beta")
	env.tick(t)
	if s := env.info(t, "beta"); s.Loaded || s.State != StateError {
		t.Fatalf("beta should have failed to load: %+v", s)
	}

	n, err := env.m.DeactivateAllExcept("alpha")
	if err != nil || n != 1 {
		t.Fatalf("DeactivateAllExcept: n=%d err=%v", n, err)
	}
	env.tick(t)

	if s := env.info(t, "beta"); s.Active || s.Loaded || s.State != StateInactive {
		t.Fatalf("beta came back after keep(alpha): %+v", s)
	}
	if got := len(env.loader.built("beta")); got != 0 {
		t.Fatalf("beta constructed %d times after keep(alpha)", got)
	}
	if s := env.info(t, "alpha"); !s.Active || !s.Loaded {
		t.Fatalf("kept skill changed: %+v", s)
	}
}
