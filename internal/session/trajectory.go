package session

import "github.com/euzop/Powerlift/internal/phase"

// TrajectoryPoint is the per-frame history kept for reports.
type TrajectoryPoint struct {
	Frame int         `json:"frame"`
	HipY  float64     `json:"hip_y"`
	HipOK bool        `json:"hip_ok"`
	BarX  float64     `json:"bar_x"`
	BarY  float64     `json:"bar_y"`
	BarOK bool        `json:"bar_ok"`
	Phase phase.Phase `json:"phase"`
}

// Trajectory is the retained history of a session, oldest first.
type Trajectory struct {
	Points     []TrajectoryPoint `json:"points"`
	RepMarkers []int             `json:"rep_markers"`
}

// Trajectory returns a copy of the retained history.
func (s *Session) Trajectory() Trajectory {
	return Trajectory{
		Points:     s.trajectory.Values(),
		RepMarkers: s.phases.RepMarkers(),
	}
}

// PhaseSequence returns the phase of every retained trajectory point.
func (t Trajectory) PhaseSequence() []phase.Phase {
	out := make([]phase.Phase, len(t.Points))
	for i, p := range t.Points {
		out[i] = p.Phase
	}
	return out
}
