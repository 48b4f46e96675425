// Package formcheck implements the geometric form-error detectors. Every
// detector takes smoothed joints, is skipped when a required joint is
// untracked or below the detection floor, and grades severity in [0, 1].
package formcheck

import (
	"fmt"
	"image/color"
	"math"

	"github.com/euzop/Powerlift/internal/config"
	"github.com/euzop/Powerlift/internal/pose"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

// Config holds the detector thresholds.
type Config struct {
	ConfidenceFloor    float64 // Required joints below this skip the check
	KneeThreshold      float64 // Knee deviation as a fraction of hip-ankle length
	SpineThresholdDeg  float64 // Torso tilt from vertical
	HipThresholdDeg    float64 // Left/right hip flexion difference
	BarSpreadThreshold float64 // Horizontal bar spread in normalized units
	BarWindow          int     // Bar positions examined
}

// DefaultConfig returns the built-in detector defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		ConfidenceFloor:    cfg.GetDetectionConfidenceFloor(),
		KneeThreshold:      cfg.GetKneeDeviationThreshold(),
		SpineThresholdDeg:  cfg.GetSpineAngleThresholdDeg(),
		HipThresholdDeg:    cfg.GetHipAsymmetryThresholdDeg(),
		BarSpreadThreshold: cfg.GetBarSpreadThreshold(),
		BarWindow:          cfg.GetBarWindow(),
	}
}

// Finding is one detector's verdict for a frame. A check that was skipped
// has Evaluated false; Present is then false and Severity 0.
type Finding struct {
	Kind      Kind    `json:"kind"`
	Evaluated bool    `json:"evaluated"`
	Present   bool    `json:"present"`
	Message   string  `json:"message,omitempty"`
	Severity  float64 `json:"severity"`
	Value     float64 `json:"value"` // measured ratio, angle or spread
}

// Highlight returns the joint colour for a present finding: the error
// colour from severity 0.5 upward, the warning colour below.
func (f Finding) Highlight() color.RGBA {
	if f.Severity >= 0.5 {
		return pose.ErrorColor
	}
	return pose.WarningColor
}

// Grade maps how far value exceeds threshold onto [0, 1], reaching 1 at
// threshold+span.
func Grade(value, threshold, span float64) float64 {
	if span <= 0 || math.IsNaN(value) {
		return 0
	}
	return math.Max(0, math.Min(1, (value-threshold)/span))
}

func skipped(k Kind) Finding { return Finding{Kind: k} }

// CheckKnee measures each knee's perpendicular distance from its hip-ankle
// line as a fraction of that line's length and flags the worse side.
func CheckKnee(s pose.Skeleton, cfg Config) Finding {
	if !s.Usable(cfg.ConfidenceFloor,
		pose.LeftHip, pose.RightHip, pose.LeftKnee, pose.RightKnee, pose.LeftAnkle, pose.RightAnkle) {
		return skipped(KneeValgus)
	}
	left := kneeDeviation(s.Joint(pose.LeftHip), s.Joint(pose.LeftKnee), s.Joint(pose.LeftAnkle))
	right := kneeDeviation(s.Joint(pose.RightHip), s.Joint(pose.RightKnee), s.Joint(pose.RightAnkle))
	ratio := math.Max(left, right)

	f := Finding{Kind: KneeValgus, Evaluated: true, Value: ratio}
	if ratio > cfg.KneeThreshold {
		f.Present = true
		f.Severity = Grade(ratio, cfg.KneeThreshold, cfg.KneeThreshold)
		f.Message = "Knee valgus detected - knees caving inward"
	}
	return f
}

func kneeDeviation(hip, knee, ankle pose.SmoothedJoint) float64 {
	limb := r2.Sub(ankle.Point().Vec(), hip.Point().Vec())
	length := r2.Norm(limb)
	if length == 0 {
		return 0
	}
	dist := math.Abs(r2.Cross(limb, r2.Sub(knee.Point().Vec(), hip.Point().Vec()))) / length
	return dist / length
}

// CheckSpine measures the tilt from vertical of the hip-midpoint to
// shoulder-midpoint vector. An upright torso is 0 degrees.
func CheckSpine(s pose.Skeleton, cfg Config) Finding {
	if !s.Usable(cfg.ConfidenceFloor, pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip) {
		return skipped(SpineMisalignment)
	}
	shoulders := midpoint(s.Joint(pose.LeftShoulder), s.Joint(pose.RightShoulder))
	hips := midpoint(s.Joint(pose.LeftHip), s.Joint(pose.RightHip))
	torso := r2.Sub(shoulders, hips)

	// Image y grows downward, so up is -y.
	angle := math.Atan2(torso.X, -torso.Y) * 180 / math.Pi
	tilt := math.Abs(angle)

	f := Finding{Kind: SpineMisalignment, Evaluated: true, Value: angle}
	if tilt > cfg.SpineThresholdDeg {
		f.Present = true
		f.Severity = Grade(tilt, cfg.SpineThresholdDeg, 90-cfg.SpineThresholdDeg)
		f.Message = fmt.Sprintf("Spine misalignment detected: %.1f° tilt", angle)
	}
	return f
}

func midpoint(a, b pose.SmoothedJoint) r2.Vec {
	return r2.Scale(0.5, r2.Add(a.Point().Vec(), b.Point().Vec()))
}

// CheckHip compares the hip flexion angle of both sides, each measured at
// the hip between straight up and the knee.
func CheckHip(s pose.Skeleton, cfg Config) Finding {
	if !s.Usable(cfg.ConfidenceFloor, pose.LeftHip, pose.RightHip, pose.LeftKnee, pose.RightKnee) {
		return skipped(HipInstability)
	}
	left := hipFlexion(s.Joint(pose.LeftHip), s.Joint(pose.LeftKnee))
	right := hipFlexion(s.Joint(pose.RightHip), s.Joint(pose.RightKnee))
	diff := math.Abs(left - right)

	f := Finding{Kind: HipInstability, Evaluated: true, Value: diff}
	if diff > cfg.HipThresholdDeg {
		f.Present = true
		f.Severity = Grade(diff, cfg.HipThresholdDeg, 45-cfg.HipThresholdDeg)
		f.Message = fmt.Sprintf("Hip instability detected: %.1f° asymmetry", diff)
	}
	return f
}

var up = r2.Vec{X: 0, Y: -1}

func hipFlexion(hip, knee pose.SmoothedJoint) float64 {
	thigh := r2.Sub(knee.Point().Vec(), hip.Point().Vec())
	if r2.Norm(thigh) == 0 {
		return 0
	}
	cos := math.Max(-1, math.Min(1, r2.Cos(up, thigh)))
	return math.Acos(cos) * 180 / math.Pi
}

// CheckBarPath measures the horizontal spread of the last BarWindow bar
// centres. It is evaluated only when the bar was seen in the current frame
// and enough positions are recorded.
func CheckBarPath(path []pose.Point, barbellPresent bool, cfg Config) Finding {
	if !barbellPresent || cfg.BarWindow < 1 || len(path) < cfg.BarWindow {
		return skipped(BarPath)
	}
	recent := path[len(path)-cfg.BarWindow:]
	xs := make([]float64, len(recent))
	for i, p := range recent {
		xs[i] = p.X
	}
	spread := floats.Max(xs) - floats.Min(xs)

	f := Finding{Kind: BarPath, Evaluated: true, Value: spread}
	if spread > cfg.BarSpreadThreshold {
		f.Present = true
		f.Severity = Grade(spread, cfg.BarSpreadThreshold, 2*cfg.BarSpreadThreshold)
		f.Message = fmt.Sprintf("Inefficient bar path: %.3f horizontal deviation (normalized)", spread)
	}
	return f
}

// Input is everything the detectors read for one frame.
type Input struct {
	Skeleton       pose.Skeleton
	BarPath        []pose.Point // recent bar centres, oldest first, current frame last
	BarbellPresent bool
}

// Suite runs all detectors with one configuration.
type Suite struct {
	cfg Config
}

// NewSuite creates a detector suite.
func NewSuite(cfg Config) *Suite {
	return &Suite{cfg: cfg}
}

// Config returns the suite configuration.
func (s *Suite) Config() Config { return s.cfg }

// Run evaluates every detector independently, returning one Finding per
// kind in Kinds() order.
func (s *Suite) Run(in Input) []Finding {
	return []Finding{
		CheckKnee(in.Skeleton, s.cfg),
		CheckSpine(in.Skeleton, s.cfg),
		CheckHip(in.Skeleton, s.cfg),
		CheckBarPath(in.BarPath, in.BarbellPresent, s.cfg),
	}
}

// Highlights maps every joint implicated in a present finding to its
// highlight colour. A joint named by several findings takes the colour of
// the most severe one.
func Highlights(findings []Finding) map[pose.Joint]color.RGBA {
	out := make(map[pose.Joint]color.RGBA)
	worst := make(map[pose.Joint]float64)
	for _, f := range findings {
		if !f.Present {
			continue
		}
		for _, j := range f.Kind.Joints() {
			if prev, ok := worst[j]; ok && prev >= f.Severity {
				continue
			}
			worst[j] = f.Severity
			out[j] = f.Highlight()
		}
	}
	return out
}
