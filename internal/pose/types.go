package pose

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a position in normalized frame coordinates.
type Point struct {
	X, Y float64
}

// Vec converts p to a gonum vector for geometry helpers.
func (p Point) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Keypoint is one raw detector output: position plus confidence in [0, 1].
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Measurement is a tracker input. Present is false when the detector
// produced nothing for the joint in this frame.
type Measurement struct {
	Point
	Present bool
}

// FromKeypoints splits raw keypoints into the parallel measurement and
// confidence arrays the tracker consumes. Non-finite positions are absent.
func FromKeypoints(kps []Keypoint) ([]Measurement, []float64) {
	ms := make([]Measurement, len(kps))
	cs := make([]float64, len(kps))
	for i, kp := range kps {
		p := Point{X: kp.X, Y: kp.Y}
		ms[i] = Measurement{Point: p, Present: p.Finite()}
		cs[i] = kp.Confidence
	}
	return ms, cs
}

// Estimate is a tracker output for one joint. OK is false when the joint has
// never been measured: there is no estimate and X/Y carry no meaning.
type Estimate struct {
	X, Y   float64
	VX, VY float64
	OK     bool
}

// Point returns the estimated position.
func (e Estimate) Point() Point { return Point{X: e.X, Y: e.Y} }

// SmoothedJoint is a tracker estimate paired with the raw detection
// confidence of the current frame.
type SmoothedJoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
	OK         bool    `json:"ok"`
}

// Point returns the smoothed position.
func (s SmoothedJoint) Point() Point { return Point{X: s.X, Y: s.Y} }

// Skeleton is the smoothed joint set of one frame, indexed by Joint.
type Skeleton []SmoothedJoint

// NewSkeleton pairs estimates with the frame's confidences.
func NewSkeleton(estimates []Estimate, confidences []float64) Skeleton {
	s := make(Skeleton, len(estimates))
	for i, e := range estimates {
		var c float64
		if i < len(confidences) {
			c = confidences[i]
		}
		s[i] = SmoothedJoint{X: e.X, Y: e.Y, Confidence: c, OK: e.OK}
	}
	return s
}

// Joint returns the smoothed joint j, or an untracked zero value when j is
// outside the skeleton.
func (s Skeleton) Joint(j Joint) SmoothedJoint {
	if int(j) < 0 || int(j) >= len(s) {
		return SmoothedJoint{}
	}
	return s[j]
}

// Usable reports whether every listed joint has an estimate and a detection
// confidence at or above floor.
func (s Skeleton) Usable(floor float64, joints ...Joint) bool {
	for _, j := range joints {
		sj := s.Joint(j)
		if !sj.OK || sj.Confidence < floor {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (s Skeleton) Clone() Skeleton {
	if s == nil {
		return nil
	}
	out := make(Skeleton, len(s))
	copy(out, s)
	return out
}

// Barbell is a detected barbell bounding box.
type Barbell struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
}

// Center returns the box centre.
func (b Barbell) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}
