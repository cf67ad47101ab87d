package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func drainWake(m *Manager) {
	select {
	case <-m.wake:
	default:
	}
}

func TestWatchNudgesOnSkillChange(t *testing.T) {
	env := newTestEnv(t, nil)
	dir := env.writeSkill(t, "weather")
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- env.m.Watch(ctx) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	drainWake(env.m)
	if err := os.WriteFile(filepath.Join(dir, "main.py"), []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-env.m.wake:
	case <-time.After(3 * time.Second):
		t.Fatalf("no nudge after a file change")
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Watch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Watch did not return after cancel")
	}
}

func TestWatchMissingDir(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := os.RemoveAll(env.dir); err != nil {
		t.Fatal(err)
	}
	if err := env.m.Watch(context.Background()); err == nil {
		t.Fatalf("expected error for a missing skills dir")
	}
}
