// Package phase classifies the movement phase of a lift from the vertical
// trajectory of one joint and counts repetitions at local minima.
package phase

import (
	"math"

	"github.com/euzop/Powerlift/internal/config"
	"github.com/euzop/Powerlift/internal/history"
	"github.com/euzop/Powerlift/internal/monitoring"
	"github.com/euzop/Powerlift/internal/pose"
	"gonum.org/v1/gonum/floats"
)

// Phase is a movement stage label.
type Phase string

const (
	Unknown Phase = "unknown"
	Setup   Phase = "setup"
	Descent Phase = "descent"
	Bottom  Phase = "bottom"
	Ascent  Phase = "ascent"
	Lockout Phase = "lockout"
)

// TrackedJoint is the joint whose vertical coordinate drives the detector.
const TrackedJoint = pose.LeftHip

// Config holds the detector windows and thresholds.
type Config struct {
	ConfidenceFloor  float64 // Below this the previous phase is held
	WarmupWindow     int     // Samples needed before direction is classified
	RepHistoryWindow int     // Samples that must have been observed before reps are counted
	RepWindow        int     // Odd sub-window for the local-minimum test
	MovingThreshold  float64 // Net change across the warm-up window that counts as moving
	MarkerCapacity   int     // Bound on retained rep markers
}

// DefaultConfig returns the built-in detector defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		ConfidenceFloor:  cfg.GetDetectionConfidenceFloor(),
		WarmupWindow:     cfg.GetPhaseWarmupWindow(),
		RepHistoryWindow: cfg.GetRepHistoryWindow(),
		RepWindow:        cfg.GetRepWindow(),
		MovingThreshold:  cfg.GetMovingThreshold(),
		MarkerCapacity:   cfg.GetRepMarkerCapacity(),
	}
}

// Sample is one accepted observation of the tracked coordinate.
type Sample struct {
	Frame int     `json:"frame"`
	Y     float64 `json:"y"`
}

// Detector is the phase state machine and repetition counter. It is owned
// by one session and is not safe for concurrent use.
type Detector struct {
	cfg      Config
	samples  *history.Ring[Sample]
	markers  *history.Ring[int]
	observed int
	reps     int
	current  Phase
}

// NewDetector creates a Detector. The sample history is sized to the
// largest window the detector reads.
func NewDetector(cfg Config) *Detector {
	if cfg.WarmupWindow < 2 {
		cfg.WarmupWindow = 2
	}
	if cfg.RepWindow < 5 {
		cfg.RepWindow = 5
	}
	if cfg.RepWindow%2 == 0 {
		cfg.RepWindow++
	}
	capacity := cfg.WarmupWindow
	if cfg.RepWindow > capacity {
		capacity = cfg.RepWindow
	}
	if cfg.RepHistoryWindow > capacity {
		capacity = cfg.RepHistoryWindow
	}
	return &Detector{
		cfg:     cfg,
		samples: history.NewRing[Sample](capacity),
		markers: history.NewRing[int](cfg.MarkerCapacity),
		current: Unknown,
	}
}

// Observe feeds the tracked coordinate for one frame and returns the phase
// for that frame. A confidence below the floor (or a NaN y) holds the
// previous phase without recording a sample. The frame on which a
// repetition is confirmed is recorded as its marker and reported as bottom.
func (d *Detector) Observe(frameIndex int, y, confidence float64) Phase {
	if confidence < d.cfg.ConfidenceFloor || math.IsNaN(y) {
		return d.current
	}

	d.samples.Push(Sample{Frame: frameIndex, Y: y})
	d.observed++

	next := d.classify()
	if d.observed > d.cfg.RepHistoryWindow {
		if d.localMinimum() {
			d.reps++
			d.markers.Push(frameIndex)
			monitoring.Tracef("phase: repetition %d at frame %d", d.reps, frameIndex)
			next = Bottom
		}
	}
	d.current = next
	return next
}

// classify applies the windowed net-change rule.
func (d *Detector) classify() Phase {
	if d.samples.Len() < d.cfg.WarmupWindow {
		return Setup
	}
	ys := d.recentY(d.cfg.WarmupWindow)

	// y grows downward, so a positive first-minus-last is upward motion.
	net := ys[0] - ys[len(ys)-1]
	switch {
	case net > d.cfg.MovingThreshold:
		return Ascent
	case net < -d.cfg.MovingThreshold:
		return Descent
	}

	last := ys[len(ys)-1]
	switch last {
	case floats.Min(ys):
		return Bottom
	case floats.Max(ys):
		return Lockout
	}
	return Setup
}

// localMinimum reports whether the middle sample of the last RepWindow
// samples is strictly lower than every other sample of that window.
func (d *Detector) localMinimum() bool {
	window := d.samples.Last(d.cfg.RepWindow)
	if len(window) < d.cfg.RepWindow {
		return false
	}
	mid := len(window) / 2
	for i, s := range window {
		if i != mid && !(window[mid].Y < s.Y) {
			return false
		}
	}
	return true
}

func (d *Detector) recentY(n int) []float64 {
	window := d.samples.Last(n)
	ys := make([]float64, len(window))
	for i, s := range window {
		ys[i] = s.Y
	}
	return ys
}

// Current returns the most recent phase.
func (d *Detector) Current() Phase { return d.current }

// RepCount returns the number of repetitions counted.
func (d *Detector) RepCount() int { return d.reps }

// RepMarkers returns the retained rep marker frame indices, oldest first.
func (d *Detector) RepMarkers() []int { return d.markers.Values() }

// Samples returns the retained samples, oldest first.
func (d *Detector) Samples() []Sample { return d.samples.Values() }

// Reset clears all history and returns the phase to unknown.
func (d *Detector) Reset() {
	d.samples.Reset()
	d.markers.Reset()
	d.observed = 0
	d.reps = 0
	d.current = Unknown
}
