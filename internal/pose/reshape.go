package pose

import "fmt"

// ShapeStatus classifies how a frame's arrays matched the joint set.
type ShapeStatus int

const (
	// ShapeOK means both arrays had exactly the expected length.
	ShapeOK ShapeStatus = iota
	// ShapeDegraded means entries were padded, truncated or invalidated.
	ShapeDegraded
	// ShapeRejected means no measurements were supplied; every joint is absent.
	ShapeRejected
)

func (s ShapeStatus) String() string {
	switch s {
	case ShapeOK:
		return "ok"
	case ShapeDegraded:
		return "degraded"
	case ShapeRejected:
		return "rejected"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s ShapeStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reshaped is the validated frame produced by Reshape. Measurements and
// Confidences always have exactly the requested length.
type Reshaped struct {
	Measurements []Measurement
	Confidences  []float64
	Status       ShapeStatus
	Issues       []string
}

// Reshape fits measurements and confidences to n joints. Missing
// measurements are padded as absent, missing confidences as 0, extras are
// truncated and non-finite positions are marked absent. The inputs are
// never modified.
func Reshape(measurements []Measurement, confidences []float64, n int) Reshaped {
	out := Reshaped{
		Measurements: make([]Measurement, n),
		Confidences:  make([]float64, n),
		Status:       ShapeOK,
	}

	if len(measurements) == 0 {
		out.Status = ShapeRejected
		out.Issues = append(out.Issues, fmt.Sprintf("no measurements, expected %d", n))
		return out
	}

	if len(measurements) != n {
		out.Issues = append(out.Issues, fmt.Sprintf("expected %d measurements, got %d", n, len(measurements)))
	}
	if len(confidences) != n {
		out.Issues = append(out.Issues, fmt.Sprintf("expected %d confidences, got %d", n, len(confidences)))
	}

	copy(out.Measurements, measurements)
	copy(out.Confidences, confidences)

	for i := range out.Measurements {
		m := &out.Measurements[i]
		if m.Present && !m.Finite() {
			m.Present = false
			out.Issues = append(out.Issues, fmt.Sprintf("%s: non-finite position", Joint(i)))
		}
		c := out.Confidences[i]
		if c != c || c < 0 {
			out.Confidences[i] = 0
			out.Issues = append(out.Issues, fmt.Sprintf("%s: invalid confidence", Joint(i)))
		} else if c > 1 {
			out.Confidences[i] = 1
		}
	}

	if len(out.Issues) > 0 {
		out.Status = ShapeDegraded
	}
	return out
}
