package scoring

import (
	"fmt"
	"strings"

	"github.com/euzop/Powerlift/internal/formcheck"
)

// Exercise selects the feedback table. It never changes detector logic.
type Exercise int

const (
	ExerciseUnspecified Exercise = iota
	Deadlift
	Squat
	Bench
	numExercises
)

var exerciseNames = [numExercises]string{"unspecified", "deadlift", "squat", "bench"}

func (e Exercise) String() string {
	if e < 0 || e >= numExercises {
		return fmt.Sprintf("exercise(%d)", int(e))
	}
	return exerciseNames[e]
}

// ParseExercise resolves an exercise label. The empty string is
// unspecified; "bench_press" is accepted for bench.
func ParseExercise(s string) (Exercise, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "", "unspecified":
		return ExerciseUnspecified, nil
	case "bench_press", "bench-press", "benchpress":
		return Bench, nil
	}
	for i, n := range exerciseNames {
		if n == name {
			return Exercise(i), nil
		}
	}
	return ExerciseUnspecified, fmt.Errorf("unknown exercise %q", s)
}

// MarshalText encodes the exercise by name.
func (e Exercise) MarshalText() ([]byte, error) {
	if e < 0 || e >= numExercises {
		return nil, fmt.Errorf("unknown exercise %d", int(e))
	}
	return []byte(exerciseNames[e]), nil
}

// UnmarshalText decodes an exercise name.
func (e *Exercise) UnmarshalText(b []byte) error {
	v, err := ParseExercise(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Rule is one feedback line emitted when the sub-score for Kind falls
// below the table's threshold.
type Rule struct {
	Kind    formcheck.Kind
	Message string
}

// generalRules fire below the general threshold for every exercise.
var generalRules = []Rule{
	{formcheck.KneeValgus, "Focus on keeping your knees properly aligned with your toes throughout the movement"},
	{formcheck.SpineMisalignment, "Maintain a neutral spine position to avoid injury"},
	{formcheck.HipInstability, "Work on hip stability and control during the movement"},
	{formcheck.BarPath, "Try to keep the bar path more vertical for better efficiency"},
}

// exerciseRules fire below the exercise threshold.
var exerciseRules = [numExercises][]Rule{
	ExerciseUnspecified: nil,
	Deadlift: {
		{formcheck.SpineMisalignment, "Keep your back straight during the deadlift to prevent lower back injury"},
		{formcheck.HipInstability, "Initiate the deadlift by hinging at the hips, not by bending the knees first"},
	},
	Squat: {
		{formcheck.KneeValgus, "Ensure your knees track over your toes and don't cave inward during the squat"},
		{formcheck.HipInstability, "Maintain proper depth in your squat, aiming to reach parallel or below"},
	},
	Bench: {
		{formcheck.SpineMisalignment, "Keep your back flat on the bench with a slight arch in your lower back"},
		{formcheck.BarPath, "Lower the bar to your mid-chest and press straight up for optimal bar path"},
	},
}

// GeneralRules returns the rules shared by every exercise.
func GeneralRules() []Rule { return append([]Rule(nil), generalRules...) }

// Rules returns the exercise-specific rules.
func (e Exercise) Rules() []Rule {
	if e < 0 || e >= numExercises {
		return nil
	}
	return append([]Rule(nil), exerciseRules[e]...)
}
