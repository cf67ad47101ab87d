package updater

import "skilld/internal/common/fsutil"

// The installed ledger is only touched while the update lock is held.

func (s *Scheduler) loadInstalled() error {
	if s.installedFile == "" {
		return nil
	}
	set, err := fsutil.ReadLineSet(s.installedFile)
	if err != nil {
		return err
	}
	s.installed = set
	return nil
}

func (s *Scheduler) saveInstalled() error {
	if s.installedFile == "" {
		return nil
	}
	return fsutil.WriteLineSet(s.installedFile, s.installed)
}

func (s *Scheduler) seen(name string) bool {
	_, ok := s.installed[name]
	return ok
}

func (s *Scheduler) markSeen(name string) { s.installed[name] = struct{}{} }
