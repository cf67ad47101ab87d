package manager

import (
	"context"
	"fmt"
)

// Converse offers utterances to the live instance of skill id and returns
// whether it consumed them. Records in the middle of a transition answer
// like unloaded ones instead of blocking.
func (m *Manager) Converse(ctx context.Context, id string, utterances []string, lang string) (bool, error) {
	recs := m.recordsByID(id)
	if len(recs) == 0 {
		converseTotal.WithLabelValues("not_found").Inc()
		return false, ErrSkillNotFound(id)
	}
	rec := recs[0]
	if !rec.op.TryRLock() {
		converseTotal.WithLabelValues("not_loaded").Inc()
		return false, notLoadedError{id: id}
	}
	defer rec.op.RUnlock()

	m.mu.RLock()
	inst, loaded, active := rec.instance, rec.loaded, rec.active
	m.mu.RUnlock()
	if !loaded || !active || inst == nil {
		converseTotal.WithLabelValues("not_loaded").Inc()
		return false, notLoadedError{id: id}
	}

	cctx, cancel := context.WithTimeout(ctx, m.converseTimeout)
	defer cancel()
	ok, err := safeConverse(cctx, inst, utterances, lang)
	if err != nil {
		converseTotal.WithLabelValues("error").Inc()
		m.log.Warn().Str("skill", id).Err(err).Msg("manager event=converse_failed")
		return false, converseFailedError{id: id, err: err}
	}
	if ok {
		converseTotal.WithLabelValues("handled").Inc()
	} else {
		converseTotal.WithLabelValues("declined").Inc()
	}
	return ok, nil
}

func safeConverse(ctx context.Context, inst Instance, utterances []string, lang string) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("panic: %v", r)
		}
	}()
	return inst.Converse(ctx, utterances, lang)
}
