// Package testutil provides shared test utilities and synthetic lift
// fixtures: standing skeletons, V-shaped hip trajectories and barbell boxes.
package testutil

import (
	"testing"

	"github.com/euzop/Powerlift/internal/pose"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// standing is an upright, front-facing lifter with straight legs, in
// normalized frame coordinates. Index order follows pose.Joint.
var standing = [pose.NumJoints]pose.Point{
	pose.Nose:          {X: 0.50, Y: 0.15},
	pose.LeftEye:       {X: 0.51, Y: 0.13},
	pose.RightEye:      {X: 0.49, Y: 0.13},
	pose.LeftEar:       {X: 0.52, Y: 0.14},
	pose.RightEar:      {X: 0.48, Y: 0.14},
	pose.LeftShoulder:  {X: 0.58, Y: 0.30},
	pose.RightShoulder: {X: 0.42, Y: 0.30},
	pose.LeftElbow:     {X: 0.60, Y: 0.40},
	pose.RightElbow:    {X: 0.40, Y: 0.40},
	pose.LeftWrist:     {X: 0.60, Y: 0.50},
	pose.RightWrist:    {X: 0.40, Y: 0.50},
	pose.LeftHip:       {X: 0.55, Y: 0.55},
	pose.RightHip:      {X: 0.45, Y: 0.55},
	pose.LeftKnee:      {X: 0.55, Y: 0.72},
	pose.RightKnee:     {X: 0.45, Y: 0.72},
	pose.LeftAnkle:     {X: 0.55, Y: 0.90},
	pose.RightAnkle:    {X: 0.45, Y: 0.90},
}

// StandingHipY is the hip height of the standing fixture.
const StandingHipY = 0.55

// Standing returns the upright fixture with every joint at confidence conf.
func Standing(conf float64) []pose.Keypoint {
	kps := make([]pose.Keypoint, pose.NumJoints)
	for i, p := range standing {
		kps[i] = pose.Keypoint{X: p.X, Y: p.Y, Confidence: conf}
	}
	return kps
}

// AtHipHeight returns the standing fixture with the upper body and hips
// shifted vertically so the hips sit at hipY. Ankles stay planted and the
// knees move halfway, keeping the legs straight in the frontal plane.
func AtHipHeight(hipY, conf float64) []pose.Keypoint {
	kps := Standing(conf)
	dy := hipY - StandingHipY
	for j := pose.Nose; j <= pose.RightHip; j++ {
		kps[j].Y += dy
	}
	kps[pose.LeftKnee].Y += dy / 2
	kps[pose.RightKnee].Y += dy / 2
	return kps
}

// WithKneeShift moves both knees toward the midline by dx.
func WithKneeShift(kps []pose.Keypoint, dx float64) []pose.Keypoint {
	out := append([]pose.Keypoint(nil), kps...)
	out[pose.LeftKnee].X -= dx
	out[pose.RightKnee].X += dx
	return out
}

// WithTorsoLean moves the shoulders horizontally by dx.
func WithTorsoLean(kps []pose.Keypoint, dx float64) []pose.Keypoint {
	out := append([]pose.Keypoint(nil), kps...)
	out[pose.LeftShoulder].X += dx
	out[pose.RightShoulder].X += dx
	return out
}

// WithConfidence sets joint j's confidence.
func WithConfidence(kps []pose.Keypoint, j pose.Joint, conf float64) []pose.Keypoint {
	out := append([]pose.Keypoint(nil), kps...)
	out[j].Confidence = conf
	return out
}

// Skeleton converts keypoints straight into a smoothed skeleton, bypassing
// the tracker. Every joint is marked as tracked.
func Skeleton(kps []pose.Keypoint) pose.Skeleton {
	s := make(pose.Skeleton, len(kps))
	for i, kp := range kps {
		s[i] = pose.SmoothedJoint{X: kp.X, Y: kp.Y, Confidence: kp.Confidence, OK: true}
	}
	return s
}

// VShape returns down strictly decreasing values starting at top, followed
// by up strictly increasing values, each step apart. The minimum is at index
// down-1.
func VShape(down, up int, top, step float64) []float64 {
	ys := make([]float64, 0, down+up)
	for i := 0; i < down; i++ {
		ys = append(ys, top-step*float64(i))
	}
	bottom := top - step*float64(down-1)
	for i := 1; i <= up; i++ {
		ys = append(ys, bottom+step*float64(i))
	}
	return ys
}

// DeadliftHold is the number of still frames Deadlift emits before the
// first pull.
const DeadliftHold = 10

// Deadlift returns hip heights for reps pulls. The lifter holds at low for
// DeadliftHold frames, then each rep rises n frames to lockout at low-depth
// and returns to low over another n frames. Hip y shrinks as the lifter
// stands, so each lockout is a strict local minimum.
func Deadlift(reps, n int, low, depth float64) []float64 {
	step := depth / float64(n)
	ys := make([]float64, 0, DeadliftHold+2*n*reps)
	for i := 0; i < DeadliftHold; i++ {
		ys = append(ys, low)
	}
	for r := 0; r < reps; r++ {
		for i := 1; i <= n; i++ {
			ys = append(ys, low-step*float64(i))
		}
		for i := 1; i <= n; i++ {
			ys = append(ys, low-depth+step*float64(i))
		}
	}
	return ys
}

// LockoutFrames returns the frame indices at which Deadlift reaches
// lockout, assuming frames are numbered from zero.
func LockoutFrames(reps, n int) []int {
	out := make([]int, reps)
	for r := range out {
		out[r] = DeadliftHold + n - 1 + 2*n*r
	}
	return out
}

// RepConfirmFrames returns the frames on which a local-minimum test over an
// odd window of repWindow samples confirms each Deadlift lockout.
func RepConfirmFrames(reps, n, repWindow int) []int {
	out := LockoutFrames(reps, n)
	for i := range out {
		out[i] += repWindow / 2
	}
	return out
}

// Barbell returns a bar box centred at (x, y).
func Barbell(x, y, conf float64) *pose.Barbell {
	return &pose.Barbell{X1: x - 0.2, Y1: y - 0.01, X2: x + 0.2, Y2: y + 0.01, Confidence: conf}
}
