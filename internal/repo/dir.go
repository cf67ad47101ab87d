package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"skilld/internal/common/fsutil"
	"skilld/internal/registry"
)

// OriginFile records how a skill was installed.
const OriginFile = ".origin"

const defaultDepsTimeout = 10 * time.Minute

// DirConfig configures a DirRepository.
type DirConfig struct {
	// CatalogDir holds pristine skill directories to install from.
	CatalogDir string
	// SkillsDir is the live skills directory.
	SkillsDir string
	// DepsTimeout bounds a dependency command. Default 10m.
	DepsTimeout time.Duration
	Logger      zerolog.Logger
}

// DirRepository is a Repository backed by a catalog directory on disk.
type DirRepository struct {
	catalog     string
	skills      string
	depsTimeout time.Duration
	log         zerolog.Logger
}

// NewDir returns a DirRepository. CatalogDir may be empty, in which case only
// locally installed skills are listed and nothing can be installed.
func NewDir(cfg DirConfig) (*DirRepository, error) {
	skills, err := fsutil.AbsPath(cfg.SkillsDir)
	if err != nil {
		return nil, err
	}
	var catalog string
	if cfg.CatalogDir != "" {
		if catalog, err = fsutil.AbsPath(cfg.CatalogDir); err != nil {
			return nil, err
		}
	}
	r := &DirRepository{catalog: catalog, skills: skills, depsTimeout: cfg.DepsTimeout, log: cfg.Logger}
	if r.depsTimeout <= 0 {
		r.depsTimeout = defaultDepsTimeout
	}
	return r, nil
}

func (r *DirRepository) SkillsDir() string { return r.skills }

// List returns the union of catalog and installed skills, sorted by name.
func (r *DirRepository) List(ctx context.Context) ([]Skill, error) {
	names := make(map[string]struct{})
	if r.catalog != "" {
		dirs, err := registry.ListSkillDirs(r.catalog)
		if err != nil {
			return nil, fmt.Errorf("list catalog: %w", err)
		}
		for _, d := range dirs {
			if registry.HasEntryPoint(d) {
				names[filepath.Base(d)] = struct{}{}
			}
		}
	}
	if dirs, err := registry.ListSkillDirs(r.skills); err == nil {
		for _, d := range dirs {
			names[filepath.Base(d)] = struct{}{}
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	out := make([]Skill, 0, len(names))
	for n := range names {
		out = append(out, r.skill(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// Lookup returns the named skill whether or not it exists anywhere.
func (r *DirRepository) Lookup(name string) Skill { return r.skill(name) }

func (r *DirRepository) skill(name string) *dirSkill {
	s := &dirSkill{repo: r, name: name, path: filepath.Join(r.skills, name)}
	if r.catalog != "" {
		s.src = filepath.Join(r.catalog, name)
	}
	return s
}

type dirSkill struct {
	repo *DirRepository
	name string
	path string
	src  string
}

func (s *dirSkill) Name() string  { return s.name }
func (s *dirSkill) Path() string  { return s.path }
func (s *dirSkill) IsLocal() bool { return fsutil.PathExists(s.path) }

func (s *dirSkill) inCatalog() bool {
	return s.src != "" && registry.HasEntryPoint(s.src)
}

// Install copies the catalog entry into a hidden staging directory and renames
// it into place, so the scanner never sees a half-written skill.
func (s *dirSkill) Install(ctx context.Context, origin string) error {
	if !s.inCatalog() {
		return fmt.Errorf("install %s: not in catalog", s.name)
	}
	if s.IsLocal() {
		return fmt.Errorf("install %s: already installed", s.name)
	}
	if err := os.MkdirAll(s.repo.skills, 0o755); err != nil {
		return err
	}
	stage, err := os.MkdirTemp(s.repo.skills, "."+s.name+"-")
	if err != nil {
		return fmt.Errorf("install %s: %w", s.name, err)
	}
	defer os.RemoveAll(stage)
	if err := copyTree(ctx, s.src, stage, false); err != nil {
		return fmt.Errorf("install %s: %w", s.name, err)
	}
	if origin != "" {
		if err := os.WriteFile(filepath.Join(stage, OriginFile), []byte(origin+"\n"), 0o644); err != nil {
			return err
		}
	}
	if err := os.Rename(stage, s.path); err != nil {
		return fmt.Errorf("install %s: %w", s.name, err)
	}
	s.repo.log.Info().Str("skill", s.name).Str("origin", origin).Msg("repo event=installed")
	return s.InstallDeps(ctx)
}

// Update copies newer catalog files over the installed skill. Local
// settings are never overwritten.
func (s *dirSkill) Update(ctx context.Context) error {
	if !s.inCatalog() {
		return nil
	}
	remote, err := registry.LastModified(s.src)
	if err != nil {
		return fmt.Errorf("update %s: %w", s.name, err)
	}
	local, err := registry.LastModified(s.path)
	if err != nil && !errors.Is(err, registry.ErrNoEligibleFiles) {
		return fmt.Errorf("update %s: %w", s.name, err)
	}
	if !remote.After(local) {
		return nil
	}
	if err := copyTree(ctx, s.src, s.path, true); err != nil {
		return fmt.Errorf("update %s: %w", s.name, err)
	}
	s.repo.log.Info().Str("skill", s.name).Time("catalog_mtime", remote).Msg("repo event=updated")
	return nil
}

func (s *dirSkill) InstallDeps(ctx context.Context) error {
	m, err := registry.ReadManifest(s.path)
	if err != nil {
		return fmt.Errorf("deps %s: %w", s.name, err)
	}
	if len(m.Deps) == 0 {
		return nil
	}
	dctx, cancel := context.WithTimeout(ctx, s.repo.depsTimeout)
	defer cancel()
	cmd := exec.CommandContext(dctx, m.Deps[0], m.Deps[1:]...)
	cmd.Dir = s.path
	out, err := cmd.CombinedOutput()
	if err != nil {
		tail := string(out)
		if len(tail) > 2048 {
			tail = tail[len(tail)-2048:]
		}
		return fmt.Errorf("deps %s: %w: %s", s.name, err, strings.TrimSpace(tail))
	}
	s.repo.log.Info().Str("skill", s.name).Strs("cmd", m.Deps).Msg("repo event=deps_installed")
	return nil
}

// copyTree mirrors src into dst. Hidden entries are skipped. With
// keepSettings, an existing dst settings file is left alone.
func copyTree(ctx context.Context, src, dst string, keepSettings bool) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel != "." && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if keepSettings && d.Name() == registry.SettingsFile && fsutil.PathExists(target) {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
