// Package registry discovers skill directories on disk and reads their
// entry points.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"skilld/internal/common/fsutil"
	"skilld/pkg/types"
)

// EntryPoint is the file that marks a directory as a skill.
const EntryPoint = "skill.toml"

// ErrNoEntryPoint is returned by Describe for directories without EntryPoint.
var ErrNoEntryPoint = errors.New("no " + EntryPoint + " entry point")

// ListSkillDirs returns the absolute paths of the immediate, non-hidden
// subdirectories of root, sorted by name. Directories without an entry point
// are included; callers decide what to do with them.
func ListSkillDirs(root string) ([]string, error) {
	abs, err := fsutil.AbsPath(root)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || isHidden(e.Name()) {
			continue
		}
		dirs = append(dirs, filepath.Join(abs, e.Name()))
	}
	sort.Strings(dirs)
	return dirs, nil
}

// HasEntryPoint reports whether dir contains a regular EntryPoint file.
func HasEntryPoint(dir string) bool {
	fi, err := os.Stat(filepath.Join(dir, EntryPoint))
	return err == nil && fi.Mode().IsRegular()
}

// ReadManifest parses dir/skill.toml.
func ReadManifest(dir string) (types.Manifest, error) {
	var m types.Manifest
	raw, err := os.ReadFile(filepath.Join(dir, EntryPoint))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, ErrNoEntryPoint
		}
		return m, err
	}
	if err := toml.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("parse %s: %w", EntryPoint, err)
	}
	if strings.TrimSpace(m.Command) == "" {
		return m, fmt.Errorf("%s: command is required", EntryPoint)
	}
	return m, nil
}

// Describe builds a descriptor for the skill in dir.
func Describe(dir string) (types.SkillDescriptor, error) {
	abs, err := fsutil.AbsPath(dir)
	if err != nil {
		return types.SkillDescriptor{}, err
	}
	m, err := ReadManifest(abs)
	if err != nil {
		return types.SkillDescriptor{}, err
	}
	id := filepath.Base(abs)
	if m.Name == "" {
		m.Name = id
	}
	return types.SkillDescriptor{ID: id, Path: abs, Manifest: m}, nil
}

// Scan describes every skill under root. Directories whose manifest cannot be
// read are skipped; the first such error is returned alongside the result.
func Scan(root string) ([]types.SkillDescriptor, error) {
	dirs, err := ListSkillDirs(root)
	if err != nil {
		return nil, err
	}
	var (
		out      []types.SkillDescriptor
		firstErr error
	)
	for _, d := range dirs {
		if !HasEntryPoint(d) {
			continue
		}
		desc, err := Describe(d)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", filepath.Base(d), err)
			}
			continue
		}
		out = append(out, desc)
	}
	return out, firstErr
}

func isHidden(name string) bool { return strings.HasPrefix(name, ".") }
