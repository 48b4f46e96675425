package scoring

// Fixed feedback lines.
const (
	EncouragementMessage     = "Great form! Keep up the good work and focus on maintaining consistency"
	BarbellVisibilityMessage = "Barbell was not consistently detected. For better analysis, ensure the barbell is clearly visible."
	InsufficientDataMessage  = "Not enough data for analysis"
)

// Feedback turns a result into human-readable lines. General rules fire
// below the general threshold, the exercise's rules below the exercise
// threshold, and a single encouragement is emitted when nothing fired. A
// low barbell detection rate appends a visibility note.
func Feedback(res Result, exercise Exercise, cfg Config) []string {
	if res.InsufficientData {
		return []string{InsufficientDataMessage}
	}

	var out []string
	for _, r := range generalRules {
		if res.Scores.Sub(r.Kind) < cfg.GeneralThreshold {
			out = append(out, r.Message)
		}
	}
	for _, r := range exercise.Rules() {
		if res.Scores.Sub(r.Kind) < cfg.ExerciseThreshold {
			out = append(out, r.Message)
		}
	}
	if len(out) == 0 {
		out = append(out, EncouragementMessage)
	}
	if res.BarbellDetectionRate < cfg.VisibilityWarning {
		out = append(out, BarbellVisibilityMessage)
	}
	return out
}
