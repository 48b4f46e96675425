package pose

import (
	"fmt"
	"image/color"
)

// Joint indexes the fixed, ordered keypoint set produced by the upstream
// detector. Indices are stable for the lifetime of a session.
type Joint int

// COCO-17 keypoint order.
const (
	Nose Joint = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
)

// NumJoints is the number of tracked joints per frame.
const NumJoints = 17

var jointNames = [NumJoints]string{
	"nose", "left_eye", "right_eye", "left_ear", "right_ear",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_hip", "right_hip",
	"left_knee", "right_knee", "left_ankle", "right_ankle",
}

// String returns the snake_case joint name.
func (j Joint) String() string {
	if !j.Valid() {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// Valid reports whether j is one of the known joints.
func (j Joint) Valid() bool {
	return j >= 0 && int(j) < NumJoints
}

// ParseJoint resolves a snake_case joint name.
func ParseJoint(name string) (Joint, error) {
	for i, n := range jointNames {
		if n == name {
			return Joint(i), nil
		}
	}
	return 0, fmt.Errorf("unknown joint %q", name)
}

// Bone is a skeleton connection drawn by renderers.
type Bone struct {
	From, To Joint
}

// Bones lists the skeleton connections in drawing order.
var Bones = []Bone{
	{Nose, LeftEye}, {Nose, RightEye},
	{LeftEye, LeftEar}, {RightEye, RightEar},
	{Nose, LeftShoulder}, {Nose, RightShoulder},
	{LeftShoulder, LeftElbow}, {LeftElbow, LeftWrist},
	{RightShoulder, RightElbow}, {RightElbow, RightWrist},
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftHip}, {RightShoulder, RightHip},
	{LeftHip, RightHip},
	{LeftHip, LeftKnee}, {LeftKnee, LeftAnkle},
	{RightHip, RightKnee}, {RightKnee, RightAnkle},
}

// Highlight colours attached to joints implicated in a form error.
var (
	ErrorColor   = color.RGBA{R: 255, A: 255}
	WarningColor = color.RGBA{R: 255, G: 165, A: 255}
)
