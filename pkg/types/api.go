package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: skill id does not exist
	Error string `json:"error" example:"skill id does not exist"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// SkillStatus summarizes one skill record for /skills and /status.
type SkillStatus struct {
	// Directory base name of the skill.
	// example: weather
	ID string `json:"id" example:"weather"`
	// Display name reported by the running skill.
	// example: Weather
	Name string `json:"name,omitempty" example:"Weather"`
	// Absolute skill directory.
	Path string `json:"path"`
	// Lifecycle state (unloaded, loading, ready, draining, inactive, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// True when the skill is enabled and has a live instance.
	// example: true
	Active bool `json:"active" example:"true"`
	// True when an instance was built for the current content.
	Loaded bool `json:"loaded"`
	// Newest content modification time observed (unix seconds).
	// example: 1700000000
	ModifiedUnix int64 `json:"modified_unix" example:"1700000000"`
	// When the current instance was built (unix seconds, 0 if none).
	LoadedAtUnix int64 `json:"loaded_at_unix,omitempty"`
	// Last load or shutdown error for this skill.
	LastError string `json:"last_error,omitempty"`
}

// SkillsResponse wraps the list returned by GET /skills.
type SkillsResponse struct {
	Skills []SkillStatus `json:"skills"`
}

// UpdateStatus describes the update scheduler state.
type UpdateStatus struct {
	// Whether periodic updates are enabled.
	Enabled bool `json:"enabled"`
	// Next planned attempt (unix seconds).
	// example: 1700003600
	NextAttemptUnix int64 `json:"next_attempt_unix" example:"1700003600"`
	// Consecutive failed attempts in the current short-retry window.
	// example: 0
	Retries int `json:"retries" example:"0"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Known skill records.
	Skills []SkillStatus `json:"skills"`
	// True once the first full scan settled.
	// example: true
	Initialized bool `json:"initialized" example:"true"`
	// True once the connectivity gate opened.
	Connected bool `json:"connected"`
	// Update scheduler state.
	Update UpdateStatus `json:"update"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total number of successful skill constructions.
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// Total number of hot reloads.
	// example: 3
	ReloadsTotal uint64 `json:"reloads_total" example:"3"`
	// Number of skills currently being constructed.
	LoadingCount int `json:"loading_count"`
	// Number of skills currently draining for a reload.
	DrainingCount int `json:"draining_count"`
}

// ConverseRequest is the body of POST /skills/{id}/converse.
type ConverseRequest struct {
	// Utterances heard since the skill last handled input.
	// example: ["what about tomorrow"]
	Utterances []string `json:"utterances" example:"what about tomorrow"`
	// Language code.
	// example: en-us
	Lang string `json:"lang,omitempty" example:"en-us"`
}

// ConverseResponse is returned by POST /skills/{id}/converse.
type ConverseResponse struct {
	// example: weather
	SkillID string `json:"skill_id" example:"weather"`
	// True when the skill consumed the utterance.
	// example: true
	Result bool `json:"result" example:"true"`
}

// ActionResponse acknowledges activate/deactivate/keep/update requests.
type ActionResponse struct {
	// example: deactivate
	Action string `json:"action" example:"deactivate"`
	// example: weather
	Skill string `json:"skill,omitempty" example:"weather"`
	// Number of records affected.
	// example: 1
	Affected int `json:"affected" example:"1"`
}
