package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nskills_dir: /tmp/skills\nauto_update: false\npriority_skills: [a, b]\nscan_interval_ms: 500\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.SkillsDir != "/tmp/skills" || cfg.AutoUpdateEnabled() || cfg.ScanIntervalMS != 500 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.PrioritySkills, []string{"a", "b"}) {
		t.Fatalf("priority=%v", cfg.PrioritySkills)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","skills_dir":"/s","blacklisted_skills":["spam"],"platform":"lab"}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.SkillsDir != "/s" || cfg.Platform != "lab" || len(cfg.BlacklistedSkills) != 1 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nskills_dir=\"/x\"\ncatalog_dir=\"/c\"\nmin_free_disk_mb=9\nwatch=false\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.SkillsDir != "/x" || cfg.CatalogDir != "/c" || cfg.MinFreeDiskMB != 9 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	cfg.ApplyDefaults()
	if cfg.WatchEnabled() {
		t.Fatalf("explicit watch=false overridden by defaults")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.yaml", "addr: :8080\n: broken\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected YAML unmarshal error")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.json", `{ "addr": ":8080", "skills_dir": }`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected JSON unmarshal error")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.toml", "addr=:8080\nskills_dir\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected TOML unmarshal error")
	}
}

func TestDefaults(t *testing.T) {
	c := Default()
	if c.Addr != DefaultAddr || c.SkillsDir != DefaultSkillsDir || c.Platform != DefaultPlatform {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if !c.AutoUpdateEnabled() || !c.WatchEnabled() {
		t.Fatalf("auto_update and watch default on")
	}
	if c.UpdateInterval() != time.Hour || c.ScanInterval() != 2*time.Second {
		t.Fatalf("intervals: %v %v", c.UpdateInterval(), c.ScanInterval())
	}
	if c.LoadTimeout() != 30*time.Second || c.ConverseTimeout() != 10*time.Second {
		t.Fatalf("timeouts: %v %v", c.LoadTimeout(), c.ConverseTimeout())
	}
	if c.LockPath != filepath.Join(filepath.Dir(DefaultSkillsDir), "update.lock") {
		t.Fatalf("lock path %q", c.LockPath)
	}
}

func TestValidate(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(*Config){
		"no skills dir":     func(c *Config) { c.SkillsDir = " " },
		"negative interval": func(c *Config) { c.UpdateIntervalSeconds = -1 },
		"negative scan":     func(c *Config) { c.ScanIntervalMS = -5 },
		"negative timeout":  func(c *Config) { c.LoadTimeoutSeconds = -1 },
		"negative disk":     func(c *Config) { c.MinFreeDiskMB = -1 },
		"bad log format":    func(c *Config) { c.LogFormat = "xml" },
		"negative converse": func(c *Config) { c.ConverseTimeoutSeconds = -2 },
	}
	for name, mutate := range cases {
		bad := c
		mutate(&bad)
		if err := bad.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
