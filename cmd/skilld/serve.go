package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"skilld/internal/bus"
	"skilld/internal/config"
	"skilld/internal/container"
	"skilld/internal/httpapi"
	"skilld/internal/updater"
)

const (
	shutdownTimeout = 5 * time.Second
	connectPoll     = 30 * time.Second
)

type serveOptions struct {
	addr       string
	skillsDir  string
	catalogDir string
	priority   string
	blacklist  string
	noUpdate   bool
	noWatch    bool
	online     bool
}

func buildServeCmd(root *rootOptions) *cobra.Command {
	return newServeCmd(root, &serveOptions{})
}

func newServeCmd(root *rootOptions, so *serveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the skill host and its admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, root, so)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
	f := cmd.Flags()
	f.StringVar(&so.addr, "addr", "", "HTTP listen address, e.g. :8088")
	f.StringVar(&so.skillsDir, "skills-dir", "", "Directory scanned for skills")
	f.StringVar(&so.catalogDir, "catalog-dir", "", "Directory skills are installed and updated from")
	f.StringVar(&so.priority, "priority", "", "Comma separated skills loaded before the first scan")
	f.StringVar(&so.blacklist, "blacklist", "", "Comma separated skills that are never loaded")
	f.BoolVar(&so.noUpdate, "no-update", false, "Disable periodic skill updates")
	f.BoolVar(&so.noWatch, "no-watch", false, "Disable the filesystem watcher")
	f.BoolVar(&so.online, "online", false, "Open the update gate without waiting for a connected message")
	return cmd
}

// resolveConfig layers defaults, the config file and command line flags.
func resolveConfig(cmd *cobra.Command, root *rootOptions, so *serveOptions) (config.Config, error) {
	var cfg config.Config
	if root.configPath != "" {
		loaded, err := config.Load(root.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Addr = so.addr
	}
	if f.Changed("skills-dir") {
		cfg.SkillsDir = so.skillsDir
	}
	if f.Changed("catalog-dir") {
		cfg.CatalogDir = so.catalogDir
	}
	if f.Changed("priority") {
		cfg.PrioritySkills = splitCSV(so.priority)
	}
	if f.Changed("blacklist") {
		cfg.BlacklistedSkills = splitCSV(so.blacklist)
	}
	if so.noUpdate {
		off := false
		cfg.AutoUpdate = &off
	}
	if so.noWatch {
		off := false
		cfg.Watch = &off
	}
	if so.online {
		cfg.SkipConnectedGate = true
	}
	if root.logLevel != "" {
		cfg.LogLevel = root.logLevel
	}
	if root.logFormat != "" {
		cfg.LogFormat = root.logFormat
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	c, err := container.New(cfg, log)
	if err != nil {
		return err
	}
	httpapi.SetBaseContext(ctx)
	m := c.Manager()
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("skills_dir", c.Paths().SkillsDir).Msg("skilld event=listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("skilld event=http_shutdown_failed")
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-m.Done():
		}
		m.Stop()
		return nil
	})
	if cfg.WatchEnabled() {
		g.Go(func() error {
			if err := m.Watch(gctx); err != nil {
				log.Warn().Err(err).Msg("skilld event=watch_disabled")
			}
			return nil
		})
	}
	if cfg.AutoUpdateEnabled() && !cfg.SkipConnectedGate {
		g.Go(func() error {
			announceConnected(gctx, c.Prober(), c.Bus(), m.ConnectedTopic(), connectPoll, log)
			return nil
		})
	}

	err = g.Wait()
	log.Info().Msg("skilld event=stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// announceConnected publishes topic once the prober reports connectivity.
// Standalone hosts have no platform service to send it for them.
func announceConnected(ctx context.Context, p updater.Prober, b bus.Bus, topic string, every time.Duration, log zerolog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		if p.Connected(ctx) {
			log.Info().Str("topic", topic).Msg("skilld event=online")
			b.Publish(bus.NewMessage(topic, nil))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
