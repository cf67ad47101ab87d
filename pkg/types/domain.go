package types

// Manifest is the parsed content of a skill's skill.toml entry point.
type Manifest struct {
	// Display name of the skill. Falls back to the directory name.
	// example: Weather
	Name string `json:"name,omitempty" toml:"name" example:"Weather"`
	// Executable started in the skill directory. Relative paths that contain a
	// separator are resolved against the skill directory.
	// example: ./run.sh
	Command string `json:"command" toml:"command" example:"./run.sh"`
	// Arguments passed to Command.
	Args []string `json:"args,omitempty" toml:"args"`
	// Extra environment for the skill process.
	Env map[string]string `json:"env,omitempty" toml:"env"`
	// Whether the skill may be torn down and rebuilt when its files change.
	// Defaults to true when omitted.
	Reloadable *bool `json:"reloadable,omitempty" toml:"reloadable"`
	// Optional dependency install command (argv form), run in the skill
	// directory the first time the skill is seen by the updater.
	// example: ["pip","install","-r","requirements.txt"]
	Deps []string `json:"deps,omitempty" toml:"deps"`
	// Free-form version string.
	// example: 1.2.0
	Version string `json:"version,omitempty" toml:"version" example:"1.2.0"`
}

// IsReloadable reports whether the manifest allows hot reload.
func (m Manifest) IsReloadable() bool {
	return m.Reloadable == nil || *m.Reloadable
}

// SkillDescriptor describes a skill directory discovered on disk.
type SkillDescriptor struct {
	// Directory base name.
	// example: weather
	ID string `json:"id" example:"weather"`
	// Absolute path to the skill directory.
	// example: /opt/skilld/skills/weather
	Path string `json:"path" example:"/opt/skilld/skills/weather"`
	// Parsed entry point.
	Manifest Manifest `json:"manifest"`
}
