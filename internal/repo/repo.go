// Package repo is the skill repository manager: it lists the skills known to
// a catalog, installs missing ones into the skills directory and keeps
// installed ones up to date.
package repo

import "context"

// Skill is one entry of a Repository listing.
type Skill interface {
	Name() string
	// Path is where the skill lives (or would live) in the skills directory.
	Path() string
	// IsLocal reports whether the skill is present in the skills directory.
	IsLocal() bool
	// Update refreshes an installed skill in place.
	Update(ctx context.Context) error
	// InstallDeps runs the skill's dependency command, if any.
	InstallDeps(ctx context.Context) error
	// Install copies the skill into the skills directory. origin records why
	// (for example "default" or "priority").
	Install(ctx context.Context, origin string) error
}

// Repository lists skills available for a skills directory.
type Repository interface {
	SkillsDir() string
	List(ctx context.Context) ([]Skill, error)
}
