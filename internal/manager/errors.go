package manager

import (
	"errors"
	"net/http"
)

// ErrBlacklisted is returned by loaders asked to construct a blacklisted skill.
var ErrBlacklisted = errors.New("skill is blacklisted")

// ErrUpdatesDisabled is returned by UpdateNow when no updater is configured.
var ErrUpdatesDisabled = errors.New("skill updates are disabled")

type skillNotFoundError struct{ id string }

func (e skillNotFoundError) Error() string   { return "skill id does not exist: " + e.id }
func (e skillNotFoundError) StatusCode() int { return http.StatusNotFound }

// ErrSkillNotFound returns an error for an id with no record.
func ErrSkillNotFound(id string) error { return skillNotFoundError{id: id} }

// IsSkillNotFound reports whether err indicates an unknown skill id.
func IsSkillNotFound(err error) bool {
	var e skillNotFoundError
	return errors.As(err, &e)
}

// notLoadedError covers inactive skills, failed loads and records in the
// middle of a transition.
type notLoadedError struct{ id string }

func (e notLoadedError) Error() string {
	return "converse requested but skill not loaded: " + e.id
}
func (e notLoadedError) StatusCode() int { return http.StatusConflict }

// IsNotLoaded reports whether err indicates a skill without a live instance.
func IsNotLoaded(err error) bool {
	var e notLoadedError
	return errors.As(err, &e)
}

type converseFailedError struct {
	id  string
	err error
}

func (e converseFailedError) Error() string {
	return "exception in converse method of " + e.id + ": " + e.err.Error()
}
func (e converseFailedError) Unwrap() error   { return e.err }
func (e converseFailedError) StatusCode() int { return http.StatusBadGateway }

// IsConverseFailed reports whether err came from the skill's converse handler.
func IsConverseFailed(err error) bool {
	var e converseFailedError
	return errors.As(err, &e)
}

// converseErrorText is the short error string sent on the bus.
func converseErrorText(err error) string {
	switch {
	case IsSkillNotFound(err):
		return "skill id does not exist"
	case IsNotLoaded(err):
		return "converse requested but skill not loaded"
	default:
		return "exception in converse method"
	}
}
