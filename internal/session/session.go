// Package session wires the analysis engine together. A Session owns every
// piece of per-lift state and processes frames strictly in index order; a
// Worker decouples frame capture from processing with a bounded queue.
package session

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/euzop/Powerlift/internal/config"
	"github.com/euzop/Powerlift/internal/formcheck"
	"github.com/euzop/Powerlift/internal/history"
	"github.com/euzop/Powerlift/internal/monitoring"
	"github.com/euzop/Powerlift/internal/phase"
	"github.com/euzop/Powerlift/internal/pose"
	"github.com/euzop/Powerlift/internal/scoring"
	"github.com/euzop/Powerlift/internal/tracking"
	"github.com/google/uuid"
)

var (
	// ErrOutOfOrder is returned for a frame whose index does not follow the
	// last processed frame. The frame is ignored.
	ErrOutOfOrder = errors.New("frame index out of order")
	// ErrStopped is returned when submitting to a stopped worker.
	ErrStopped = errors.New("worker stopped")
	// ErrDropped is returned when a frame was discarded because the queue
	// was full.
	ErrDropped = errors.New("frame dropped: queue full")
)

// Config gathers the settings of every stage.
type Config struct {
	Tracking               tracking.Config
	Phase                  phase.Config
	FormCheck              formcheck.Config
	Scoring                scoring.Config
	BarbellConfidenceFloor float64
	TrajectoryCapacity     int
}

// DefaultConfig returns the built-in defaults for every stage.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Tracking:               tracking.ConfigFromTuning(cfg),
		Phase:                  phase.ConfigFromTuning(cfg),
		FormCheck:              formcheck.ConfigFromTuning(cfg),
		Scoring:                scoring.ConfigFromTuning(cfg),
		BarbellConfidenceFloor: cfg.GetBarbellConfidenceFloor(),
		TrajectoryCapacity:     cfg.GetTrajectoryCapacity(),
	}
}

// Frame is one frame of detector output.
type Frame struct {
	Index     int
	Keypoints []pose.Keypoint
	Barbell   *pose.Barbell // nil when no bar was detected
}

// FrameResult is the per-frame output.
type FrameResult struct {
	FrameIndex      int                       `json:"frame"`
	Phase           phase.Phase               `json:"phase"`
	Findings        []formcheck.Finding       `json:"findings"`
	Highlights      map[pose.Joint]color.RGBA `json:"highlights,omitempty"`
	Skeleton        pose.Skeleton             `json:"skeleton"`
	Shape           pose.ShapeStatus          `json:"shape"`
	BarbellDetected bool                      `json:"barbell_detected"`
	RepCount        int                       `json:"rep_count"`
	Scores          scoring.Scores            `json:"scores"` // smoothed live view
}

// Errors returns only the findings that flagged an error.
func (r FrameResult) Errors() []formcheck.Finding {
	var out []formcheck.Finding
	for _, f := range r.Findings {
		if f.Present {
			out = append(out, f)
		}
	}
	return out
}

// Clone returns a deep copy.
func (r FrameResult) Clone() FrameResult {
	out := r
	out.Findings = append([]formcheck.Finding(nil), r.Findings...)
	out.Skeleton = r.Skeleton.Clone()
	if r.Highlights != nil {
		out.Highlights = make(map[pose.Joint]color.RGBA, len(r.Highlights))
		for j, c := range r.Highlights {
			out.Highlights[j] = c
		}
	}
	return out
}

// Summary is the finalize output of a session.
type Summary struct {
	SessionID            string              `json:"session_id"`
	Exercise             scoring.Exercise    `json:"exercise"`
	Scores               scoring.Scores      `json:"scores"`
	Smoothed             scoring.Scores      `json:"smoothed_scores"`
	RepCount             int                 `json:"rep_count"`
	RepMarkers           []int               `json:"rep_markers"`
	BarbellDetectionRate float64             `json:"barbell_detection_rate"`
	CannotAssess         bool                `json:"cannot_assess"`
	InsufficientData     bool                `json:"insufficient_data"`
	Feedback             []string            `json:"feedback"`
	FramesProcessed      int                 `json:"frames_processed"`
	DegradedFrames       int                 `json:"degraded_frames"`
	Errors               []scoring.KindStats `json:"errors"`
}

// Session is the accumulator for one lift. It is not safe for concurrent
// use; a Worker gives it a single owner goroutine.
type Session struct {
	id       uuid.UUID
	exercise scoring.Exercise
	cfg      Config

	tracker    *tracking.KeypointTracker
	phases     *phase.Detector
	suite      *formcheck.Suite
	aggregator *scoring.Aggregator

	barPath    *history.Ring[pose.Point]
	trajectory *history.Ring[TrajectoryPoint]

	lastIndex int
	started   bool
	degraded  int
}

// New creates a session with a fresh identifier.
func New(cfg Config, exercise scoring.Exercise) *Session {
	s := &Session{
		id:         uuid.New(),
		exercise:   exercise,
		cfg:        cfg,
		tracker:    tracking.NewKeypointTracker(cfg.Tracking, pose.NumJoints),
		phases:     phase.NewDetector(cfg.Phase),
		suite:      formcheck.NewSuite(cfg.FormCheck),
		aggregator: scoring.NewAggregator(cfg.Scoring),
		barPath:    history.NewRing[pose.Point](cfg.FormCheck.BarWindow),
		trajectory: history.NewRing[TrajectoryPoint](cfg.TrajectoryCapacity),
	}
	monitoring.Diagf("session %s: created for %s", s.id, exercise)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Exercise returns the exercise label used for feedback.
func (s *Session) Exercise() scoring.Exercise { return s.exercise }

// SetFPS updates the tracker time step.
func (s *Session) SetFPS(fps float64) { s.tracker.SetFPS(fps) }

// Process runs one frame through smoothing, phase detection, the form
// checks and the aggregator. Frame indices must strictly increase.
func (s *Session) Process(f Frame) (FrameResult, error) {
	if s.started && f.Index <= s.lastIndex {
		monitoring.Opsf("session %s: frame %d after %d ignored", s.id, f.Index, s.lastIndex)
		return FrameResult{}, fmt.Errorf("%w: frame %d after %d", ErrOutOfOrder, f.Index, s.lastIndex)
	}
	s.started = true
	s.lastIndex = f.Index

	measurements, confidences := pose.FromKeypoints(f.Keypoints)
	smoothed := s.tracker.Smooth(measurements, confidences)
	if smoothed.Shape != pose.ShapeOK {
		s.degraded++
	}
	skeleton := smoothed.Skeleton()

	hip := skeleton.Joint(phase.TrackedJoint)
	hipConfidence := hip.Confidence
	if !hip.OK {
		hipConfidence = 0
	}
	ph := s.phases.Observe(f.Index, hip.Y, hipConfidence)

	barbell := s.barbellCenter(f.Barbell)
	if barbell.OK {
		s.barPath.Push(barbell.Point)
	}

	findings := s.suite.Run(formcheck.Input{
		Skeleton:       skeleton,
		BarPath:        s.barPath.Values(),
		BarbellPresent: barbell.OK,
	})
	s.aggregator.Record(f.Index, findings, barbell.OK)

	s.trajectory.Push(TrajectoryPoint{
		Frame: f.Index,
		HipY:  hip.Y,
		HipOK: hip.OK,
		BarX:  barbell.X,
		BarY:  barbell.Y,
		BarOK: barbell.OK,
		Phase: ph,
	})

	res := FrameResult{
		FrameIndex:      f.Index,
		Phase:           ph,
		Findings:        findings,
		Highlights:      formcheck.Highlights(findings),
		Skeleton:        skeleton,
		Shape:           smoothed.Shape,
		BarbellDetected: barbell.OK,
		RepCount:        s.phases.RepCount(),
		Scores:          s.aggregator.Latest().Smoothed,
	}
	if monitoring.TraceEnabled() {
		monitoring.Tracef("session %s: frame=%d phase=%s errors=%d reps=%d overall=%.1f",
			s.id, f.Index, ph, len(res.Errors()), res.RepCount, res.Scores.Overall)
	}
	return res, nil
}

type barbellSample struct {
	pose.Point
	OK bool
}

func (s *Session) barbellCenter(b *pose.Barbell) barbellSample {
	if b == nil || b.Confidence < s.cfg.BarbellConfidenceFloor {
		return barbellSample{}
	}
	c := b.Center()
	if !c.Finite() || math.IsNaN(b.Confidence) {
		return barbellSample{}
	}
	return barbellSample{Point: c, OK: true}
}

// Finalize returns exact scores over every processed frame together with
// the repetition count and feedback. It does not end the session.
func (s *Session) Finalize() Summary {
	res := s.aggregator.Result()
	sum := Summary{
		SessionID:            s.id.String(),
		Exercise:             s.exercise,
		Scores:               res.Scores,
		Smoothed:             res.Smoothed,
		RepCount:             s.phases.RepCount(),
		RepMarkers:           s.phases.RepMarkers(),
		BarbellDetectionRate: res.BarbellDetectionRate,
		CannotAssess:         res.CannotAssess,
		InsufficientData:     res.InsufficientData,
		Feedback:             scoring.Feedback(res, s.exercise, s.cfg.Scoring),
		FramesProcessed:      res.TotalFrames,
		DegradedFrames:       s.degraded,
		Errors:               res.Errors,
	}
	if res.CannotAssess {
		monitoring.Opsf("session %s: barbell detected in %.0f%% of frames, scores withheld",
			s.id, 100*res.BarbellDetectionRate)
	}
	return sum
}

// Reset clears every accumulator so the session can analyse a new lift.
// The identifier is kept.
func (s *Session) Reset() {
	s.tracker.Reset()
	s.phases.Reset()
	s.aggregator.Reset()
	s.barPath.Reset()
	s.trajectory.Reset()
	s.started = false
	s.lastIndex = 0
	s.degraded = 0
}
