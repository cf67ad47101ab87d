package registry

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// SettingsFile is the per-skill settings file. Writes to it never count as a
// content change.
const SettingsFile = "settings.json"

// ErrNoEligibleFiles is returned by LastModified when a directory holds no
// file that counts towards its modification time.
var ErrNoEligibleFiles = errors.New("no eligible files")

var ignoredSuffixes = []string{".pyc", ".qmlc"}

// Eligible reports whether a file name counts towards a skill's content
// modification time.
func Eligible(name string) bool {
	if isHidden(name) || name == SettingsFile {
		return false
	}
	for _, s := range ignoredSuffixes {
		if strings.HasSuffix(name, s) {
			return false
		}
	}
	return true
}

// LastModified returns the newest mtime over the eligible files beneath dir.
// Hidden directories are not descended into.
func LastModified(dir string) (time.Time, error) {
	var (
		newest time.Time
		found  bool
	)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !Eligible(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		found = true
		if mt := info.ModTime(); mt.After(newest) {
			newest = mt
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	if !found {
		return time.Time{}, ErrNoEligibleFiles
	}
	return newest, nil
}
