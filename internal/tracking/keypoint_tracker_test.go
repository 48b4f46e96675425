package tracking

import (
	"math"
	"testing"

	"github.com/euzop/Powerlift/internal/pose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullFrame(p pose.Point, conf float64) ([]pose.Measurement, []float64) {
	ms := make([]pose.Measurement, pose.NumJoints)
	cs := make([]float64, pose.NumJoints)
	for i := range ms {
		ms[i] = pose.Measurement{Point: p, Present: true}
		cs[i] = conf
	}
	return ms, cs
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	assert.Equal(t, 30.0, cfg.FPS)
	assert.Equal(t, 0.03, cfg.ProcessNoise)
	assert.Equal(t, 0.1, cfg.MeasurementNoise)
	assert.Equal(t, 0.1, cfg.ConfidenceFloor)
	assert.Equal(t, 10.0, cfg.MaxCovarianceDiag)
}

func TestUnseenJointHasNoEstimate(t *testing.T) {
	t.Parallel()
	tr := NewKeypointTracker(DefaultConfig(), pose.NumJoints)

	est := tr.Predict(pose.LeftKnee)
	assert.False(t, est.OK)

	// Only the nose is detected; every other joint stays without an estimate
	// rather than collapsing to the origin.
	ms := make([]pose.Measurement, pose.NumJoints)
	cs := make([]float64, pose.NumJoints)
	ms[pose.Nose] = pose.Measurement{Point: pose.Point{X: 0.5, Y: 0.2}, Present: true}
	cs[pose.Nose] = 0.9

	res := tr.Smooth(ms, cs)
	require.Len(t, res.Estimates, pose.NumJoints)
	assert.True(t, res.Estimates[pose.Nose].OK)
	for j := pose.LeftEye; j < pose.NumJoints; j++ {
		assert.False(t, res.Estimates[j].OK, "joint %s", j)
	}
}

func TestFirstUpdateSeedsState(t *testing.T) {
	t.Parallel()
	tr := NewKeypointTracker(DefaultConfig(), pose.NumJoints)

	est := tr.Update(pose.LeftHip, pose.Point{X: 0.4, Y: 0.6}, 0.9)
	require.True(t, est.OK)
	assert.Equal(t, 0.4, est.X)
	assert.Equal(t, 0.6, est.Y)
	assert.Zero(t, est.VX)
	assert.Zero(t, est.VY)

	st, ok := tr.JointState(pose.LeftHip)
	require.True(t, ok)
	assert.True(t, st.Initialized)
	assert.Equal(t, [4]float64{0.4, 0.6, 0, 0}, st.State)
}

func TestPerfectMeasurementLeavesPredictionUnchanged(t *testing.T) {
	t.Parallel()
	tr := NewKeypointTracker(DefaultConfig(), pose.NumJoints)

	// Build up some velocity first.
	for i := 0; i < 10; i++ {
		tr.Update(pose.RightKnee, pose.Point{X: 0.3 + 0.01*float64(i), Y: 0.5}, 1)
		tr.Predict(pose.RightKnee)
	}

	pred := tr.Predict(pose.RightKnee)
	require.True(t, pred.OK)
	got := tr.Update(pose.RightKnee, pred.Point(), 1)

	assert.InDelta(t, pred.X, got.X, 1e-12)
	assert.InDelta(t, pred.Y, got.Y, 1e-12)
	assert.InDelta(t, pred.VX, got.VX, 1e-12)
	assert.InDelta(t, pred.VY, got.VY, 1e-12)
}

func TestSmoothingReducesJitter(t *testing.T) {
	t.Parallel()
	tr := NewKeypointTracker(DefaultConfig(), pose.NumJoints)

	const truth = 0.5
	var rawErr, smoothErr float64
	for i := 0; i < 60; i++ {
		noise := 0.02
		if i%2 == 1 {
			noise = -0.02
		}
		ms, cs := fullFrame(pose.Point{X: truth + noise, Y: truth}, 1)
		res := tr.Smooth(ms, cs)
		if i < 10 {
			continue
		}
		rawErr += math.Abs(noise)
		smoothErr += math.Abs(res.Estimates[pose.LeftWrist].X - truth)
	}
	assert.Less(t, smoothErr, rawErr)
}

func TestSmoothCorrectsConfidentJointsWithUpdate(t *testing.T) {
	t.Parallel()
	smoothed := NewKeypointTracker(DefaultConfig(), pose.NumJoints)
	updated := NewKeypointTracker(DefaultConfig(), pose.NumJoints)

	for i := 0; i < 20; i++ {
		p := pose.Point{X: 0.5, Y: 0.50 + 0.005*float64(i)}
		ms, cs := fullFrame(p, 0.9)
		got := smoothed.Smooth(ms, cs).Estimates[pose.LeftHip]
		want := updated.Update(pose.LeftHip, p, 0.9)

		require.True(t, got.OK)
		assert.InDelta(t, want.X, got.X, 1e-12, "frame %d", i)
		assert.InDelta(t, want.Y, got.Y, 1e-12, "frame %d", i)
	}

	a, _ := smoothed.JointState(pose.LeftHip)
	b, _ := updated.JointState(pose.LeftHip)
	assert.InDeltaSlice(t, b.Covariance[:], a.Covariance[:], 1e-12)
}

func TestGapIsBridgedByPrediction(t *testing.T) {
	t.Parallel()
	tr := NewKeypointTracker(DefaultConfig(), pose.NumJoints)

	// Drive a full predict/correct cycle so the filter learns a velocity.
	var last pose.Estimate
	for i := 0; i < 30; i++ {
		tr.Predict(pose.LeftAnkle)
		last = tr.Update(pose.LeftAnkle, pose.Point{X: 0.2 + 0.005*float64(i), Y: 0.5}, 0.9)
	}
	require.Greater(t, last.VX, 0.0)

	// Three frames where the detector loses the joint entirely.
	for i := 0; i < 3; i++ {
		ms, cs := fullFrame(pose.Point{}, 0)
		for k := range ms {
			ms[k].Present = false
		}
		est := tr.Smooth(ms, cs).Estimates[pose.LeftAnkle]
		require.True(t, est.OK)
		assert.Greater(t, est.X, last.X, "gap frame %d should continue the motion", i)
		last = est
	}
}

func TestLowConfidenceIsPredictOnly(t *testing.T) {
	t.Parallel()
	tr := NewKeypointTracker(DefaultConfig(), pose.NumJoints)

	ms, cs := fullFrame(pose.Point{X: 0.5, Y: 0.5}, 0.9)
	tr.Smooth(ms, cs)

	// A wildly different detection below the smoothing floor is ignored.
	ms, cs = fullFrame(pose.Point{X: 0.9, Y: 0.1}, 0.05)
	est := tr.Smooth(ms, cs).Estimates[pose.Nose]
	require.True(t, est.OK)
	assert.InDelta(t, 0.5, est.X, 1e-9)
	assert.InDelta(t, 0.5, est.Y, 1e-9)
}

func TestConfidenceWeightsCorrection(t *testing.T) {
	t.Parallel()

	correction := func(conf float64) float64 {
		tr := NewKeypointTracker(DefaultConfig(), pose.NumJoints)
		tr.Update(pose.Nose, pose.Point{X: 0.5, Y: 0.5}, 1)
		tr.Predict(pose.Nose)
		est := tr.Update(pose.Nose, pose.Point{X: 0.6, Y: 0.5}, conf)
		return est.X - 0.5
	}

	high := correction(1.0)
	low := correction(0.2)
	assert.Greater(t, high, low)
	assert.Greater(t, low, 0.0)
}

func TestSmoothReshapesMalformedFrames(t *testing.T) {
	t.Parallel()
	tr := NewKeypointTracker(DefaultConfig(), pose.NumJoints)

	tests := []struct {
		name  string
		n     int
		shape pose.ShapeStatus
	}{
		{"short", 5, pose.ShapeDegraded},
		{"long", pose.NumJoints + 3, pose.ShapeDegraded},
		{"empty", 0, pose.ShapeRejected},
		{"exact", pose.NumJoints, pose.ShapeOK},
	}
	for _, tt := range tests {
		ms := make([]pose.Measurement, tt.n)
		cs := make([]float64, tt.n)
		for i := range ms {
			ms[i] = pose.Measurement{Point: pose.Point{X: 0.5, Y: 0.5}, Present: true}
			cs[i] = 0.8
		}
		res := tr.Smooth(ms, cs)
		assert.Equal(t, tt.shape, res.Shape, tt.name)
		assert.Len(t, res.Estimates, pose.NumJoints, tt.name)
		assert.Len(t, res.Confidences, pose.NumJoints, tt.name)
	}
}

func TestNonFiniteMeasurementIsIgnored(t *testing.T) {
	t.Parallel()
	tr := NewKeypointTracker(DefaultConfig(), pose.NumJoints)

	ms, cs := fullFrame(pose.Point{X: 0.5, Y: 0.5}, 0.9)
	tr.Smooth(ms, cs)

	ms, cs = fullFrame(pose.Point{X: math.NaN(), Y: math.Inf(1)}, 0.9)
	est := tr.Smooth(ms, cs).Estimates[pose.Nose]
	require.True(t, est.OK)
	assert.False(t, math.IsNaN(est.X))
	assert.False(t, math.IsInf(est.Y, 0))
}

func TestCovarianceIsCapped(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.MaxCovarianceDiag = 2
	tr := NewKeypointTracker(cfg, pose.NumJoints)
	tr.Update(pose.Nose, pose.Point{X: 0.5, Y: 0.5}, 1)

	for i := 0; i < 500; i++ {
		tr.Predict(pose.Nose)
	}
	st, ok := tr.JointState(pose.Nose)
	require.True(t, ok)
	for i := 0; i < 4; i++ {
		assert.LessOrEqual(t, st.Covariance[i*4+i], 2.0)
	}
}

func TestResetAndInvalidJoint(t *testing.T) {
	t.Parallel()
	tr := NewKeypointTracker(DefaultConfig(), pose.NumJoints)
	tr.Update(pose.Nose, pose.Point{X: 0.5, Y: 0.5}, 1)
	tr.Reset()

	assert.False(t, tr.Predict(pose.Nose).OK)
	assert.False(t, tr.Update(pose.Joint(99), pose.Point{}, 1).OK)
	_, ok := tr.JointState(pose.Joint(-1))
	assert.False(t, ok)
	assert.Equal(t, pose.NumJoints, tr.NumJoints())
}

func TestSetFPSIgnoresInvalid(t *testing.T) {
	t.Parallel()
	tr := NewKeypointTracker(DefaultConfig(), pose.NumJoints)
	tr.SetFPS(0)
	tr.SetFPS(math.NaN())
	assert.Equal(t, 30.0, tr.cfg.FPS)
	assert.InDelta(t, 1.0/30, tr.f.At(0, 2), 1e-15)

	tr.SetFPS(60)
	assert.Equal(t, 60.0, tr.cfg.FPS)
	assert.InDelta(t, 1.0/60, tr.f.At(1, 3), 1e-15)
}
