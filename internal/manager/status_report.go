package manager

import (
	"time"

	"skilld/pkg/types"
)

// Skills returns the API view of every record.
func (m *Manager) Skills() []types.SkillStatus {
	infos := m.List()
	out := make([]types.SkillStatus, 0, len(infos))
	for _, s := range infos {
		st := types.SkillStatus{
			ID:        s.ID,
			Name:      s.Name,
			Path:      s.Path,
			State:     string(s.State),
			Active:    s.Active && s.Loaded,
			Loaded:    s.Loaded,
			LastError: s.LastError,
		}
		if !s.LastModified.IsZero() {
			st.ModifiedUnix = s.LastModified.Unix()
		}
		if !s.LoadedAt.IsZero() && s.Loaded {
			st.LoadedAtUnix = s.LoadedAt.Unix()
		}
		out = append(out, st)
	}
	return out
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	now := m.now()
	resp := types.StatusResponse{
		Skills:         m.Skills(),
		Initialized:    m.initialized.Load(),
		Connected:      m.connected.Load(),
		UptimeSeconds:  int64(now.Sub(m.startTime) / time.Second),
		ServerTimeUnix: now.Unix(),
		LoadsTotal:     m.loadsTotal.Load(),
		ReloadsTotal:   m.reloadsTotal.Load(),
	}
	for _, s := range resp.Skills {
		switch State(s.State) {
		case StateLoading:
			resp.LoadingCount++
		case StateDraining:
			resp.DrainingCount++
		}
	}
	resp.Update.Enabled = m.autoUpdate && m.updater != nil
	if m.updater != nil {
		resp.Update.NextAttemptUnix = m.updater.NextAttempt().Unix()
		resp.Update.Retries = m.updater.Retries()
	}
	return resp
}
