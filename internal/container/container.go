// Package container wires the skilld object graph using go.uber.org/dig.
package container

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"go.uber.org/dig"

	"skilld/internal/bus"
	"skilld/internal/common/fsutil"
	"skilld/internal/config"
	"skilld/internal/httpapi"
	"skilld/internal/manager"
	"skilld/internal/netcheck"
	"skilld/internal/repo"
	"skilld/internal/skillproc"
	"skilld/internal/updater"
)

// Container holds the resolved singletons. Callers use the typed getters and
// never import dig directly.
type Container struct {
	manager *manager.Manager
	bus     bus.Bus
	handler http.Handler
	prober  updater.Prober
	paths   Paths
}

func (c *Container) Manager() *manager.Manager { return c.manager }
func (c *Container) Bus() bus.Bus              { return c.bus }
func (c *Container) Handler() http.Handler     { return c.handler }
func (c *Container) Prober() updater.Prober    { return c.prober }
func (c *Container) Paths() Paths              { return c.paths }

// Paths are the configured filesystem locations with ~ expanded.
type Paths struct {
	SkillsDir     string
	CatalogDir    string
	LockPath      string
	InstalledFile string
}

// New builds and wires every service from cfg. Defaults must already be
// applied.
func New(cfg config.Config, log zerolog.Logger) (*Container, error) {
	d := dig.New()

	providers := []any{
		func() config.Config { return cfg },
		func() zerolog.Logger { return log },
		newPaths,
		newBus,
		newRepository,
		newProber,
		newScheduler,
		newLoader,
		newManager,
		newHandler,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(m *manager.Manager, b bus.Bus, h http.Handler, pr updater.Prober, p Paths) {
		result = &Container{manager: m, bus: b, handler: h, prober: pr, paths: p}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

func newPaths(cfg config.Config) (Paths, error) {
	var p Paths
	var err error
	if p.SkillsDir, err = fsutil.AbsPath(cfg.SkillsDir); err != nil {
		return p, fmt.Errorf("skills_dir: %w", err)
	}
	if cfg.CatalogDir != "" {
		if p.CatalogDir, err = fsutil.AbsPath(cfg.CatalogDir); err != nil {
			return p, fmt.Errorf("catalog_dir: %w", err)
		}
	}
	if p.LockPath, err = fsutil.AbsPath(cfg.LockPath); err != nil {
		return p, fmt.Errorf("lock_path: %w", err)
	}
	if p.InstalledFile, err = fsutil.AbsPath(cfg.InstalledSkillsFile); err != nil {
		return p, fmt.Errorf("installed_skills_file: %w", err)
	}
	for _, dir := range []string{p.SkillsDir, filepath.Dir(p.LockPath), filepath.Dir(p.InstalledFile)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return p, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return p, nil
}

func newBus(log zerolog.Logger) bus.Bus {
	return bus.NewLocal(log.With().Str("component", "bus").Logger())
}

func newRepository(p Paths, log zerolog.Logger) (repo.Repository, error) {
	return repo.NewDir(repo.DirConfig{
		CatalogDir: p.CatalogDir,
		SkillsDir:  p.SkillsDir,
		Logger:     log.With().Str("component", "repo").Logger(),
	})
}

func newProber(cfg config.Config, log zerolog.Logger) updater.Prober {
	return netcheck.New(netcheck.Config{
		Hosts:         cfg.ConnectivityHosts,
		MinFreeDiskMB: uint64(cfg.MinFreeDiskMB),
		Logger:        log.With().Str("component", "netcheck").Logger(),
	})
}

type schedulerParams struct {
	dig.In

	Config config.Config
	Paths  Paths
	Repo   repo.Repository
	Prober updater.Prober
	Bus    bus.Bus
	Logger zerolog.Logger
}

// newScheduler always builds the scheduler: priority skills are installed
// through it even when periodic updates are off.
func newScheduler(p schedulerParams) (manager.Updater, error) {
	required := append(append([]string(nil), p.Config.DefaultSkills...), p.Config.PrioritySkills...)
	s, err := updater.New(updater.Config{
		Repo:          p.Repo,
		Prober:        p.Prober,
		Lock:          fsutil.NewComboLock(p.Paths.LockPath),
		Bus:           p.Bus,
		Speak:         p.Config.SpeakUpdates,
		Interval:      p.Config.UpdateInterval(),
		Required:      required,
		InstalledFile: p.Paths.InstalledFile,
		Logger:        p.Logger.With().Str("component", "updater").Logger(),
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newLoader(log zerolog.Logger) manager.Loader {
	return skillproc.NewLoader(skillproc.Config{
		Logger: log.With().Str("component", "skillproc").Logger(),
	})
}

type managerParams struct {
	dig.In

	Config  config.Config
	Paths   Paths
	Loader  manager.Loader
	Bus     bus.Bus
	Updater manager.Updater
	Logger  zerolog.Logger
}

func newManager(p managerParams) (*manager.Manager, error) {
	return manager.NewWithConfig(manager.ManagerConfig{
		SkillsDir:         p.Paths.SkillsDir,
		Loader:            p.Loader,
		Bus:               p.Bus,
		Updater:           p.Updater,
		AutoUpdate:        p.Config.AutoUpdateEnabled(),
		ScanInterval:      p.Config.ScanInterval(),
		LoadTimeout:       p.Config.LoadTimeout(),
		ConverseTimeout:   p.Config.ConverseTimeout(),
		Priority:          p.Config.PrioritySkills,
		Blacklist:         p.Config.BlacklistedSkills,
		Platform:          p.Config.Platform,
		SkipConnectedGate: p.Config.SkipConnectedGate,
		Logger:            p.Logger.With().Str("component", "manager").Logger(),
	})
}

func newHandler(cfg config.Config, m *manager.Manager, log zerolog.Logger) http.Handler {
	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	httpapi.SetConverseTimeout(cfg.ConverseTimeout() + cfg.ConverseTimeout()/2)
	return httpapi.NewMux(m)
}
