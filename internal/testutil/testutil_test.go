package testutil

import (
	"errors"
	"testing"

	"github.com/euzop/Powerlift/internal/pose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertHelpers(t *testing.T) {
	fakeT := &testing.T{}
	AssertNoError(fakeT, nil)
	assert.False(t, fakeT.Failed())

	fakeT = &testing.T{}
	AssertError(fakeT, errors.New("boom"))
	assert.False(t, fakeT.Failed())
}

func TestStandingFixture(t *testing.T) {
	kps := Standing(0.9)
	require.Len(t, kps, pose.NumJoints)
	for _, kp := range kps {
		assert.Equal(t, 0.9, kp.Confidence)
	}
	assert.Equal(t, StandingHipY, kps[pose.LeftHip].Y)
	// Shoulders sit above the hips in image coordinates.
	assert.Less(t, kps[pose.LeftShoulder].Y, kps[pose.LeftHip].Y)
}

func TestAtHipHeight(t *testing.T) {
	kps := AtHipHeight(0.65, 1)
	assert.InDelta(t, 0.65, kps[pose.LeftHip].Y, 1e-12)
	assert.InDelta(t, 0.40, kps[pose.LeftShoulder].Y, 1e-12)
	assert.InDelta(t, 0.77, kps[pose.LeftKnee].Y, 1e-12)
	assert.InDelta(t, 0.90, kps[pose.LeftAnkle].Y, 1e-12)
}

func TestModifiersDoNotAlias(t *testing.T) {
	base := Standing(1)
	shifted := WithKneeShift(base, 0.05)
	leaned := WithTorsoLean(base, 0.1)
	low := WithConfidence(base, pose.LeftKnee, 0.05)

	assert.Equal(t, 0.55, base[pose.LeftKnee].X)
	assert.InDelta(t, 0.50, shifted[pose.LeftKnee].X, 1e-12)
	assert.InDelta(t, 0.50, shifted[pose.RightKnee].X, 1e-12)
	assert.InDelta(t, 0.68, leaned[pose.LeftShoulder].X, 1e-12)
	assert.Equal(t, 0.05, low[pose.LeftKnee].Confidence)
	assert.Equal(t, 1.0, base[pose.LeftKnee].Confidence)
}

func TestVShape(t *testing.T) {
	ys := VShape(25, 15, 0.8, 0.01)
	require.Len(t, ys, 40)
	for i := 1; i < 25; i++ {
		assert.Less(t, ys[i], ys[i-1])
	}
	for i := 25; i < 40; i++ {
		assert.Greater(t, ys[i], ys[i-1])
	}
}

func TestDeadlift(t *testing.T) {
	ys := Deadlift(2, 15, 0.65, 0.15)
	require.Len(t, ys, DeadliftHold+60)
	assert.Equal(t, 0.65, ys[0])

	for _, f := range LockoutFrames(2, 15) {
		assert.InDelta(t, 0.50, ys[f], 1e-12)
		assert.Less(t, ys[f], ys[f-1])
		assert.Less(t, ys[f], ys[f+1])
	}
	assert.InDelta(t, 0.65, ys[len(ys)-1], 1e-12)
}

func TestBarbellFixture(t *testing.T) {
	b := Barbell(0.5, 0.4, 0.8)
	c := b.Center()
	assert.InDelta(t, 0.5, c.X, 1e-12)
	assert.InDelta(t, 0.4, c.Y, 1e-12)
}

func TestRepConfirmFrames(t *testing.T) {
	assert.Equal(t, []int{26, 56}, RepConfirmFrames(2, 15, 5))
	assert.Equal(t, LockoutFrames(2, 15), RepConfirmFrames(2, 15, 1))
}
