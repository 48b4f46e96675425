package formcheck

import (
	"fmt"

	"github.com/euzop/Powerlift/internal/pose"
)

// Kind identifies one of the form-error detectors.
type Kind int

const (
	KneeValgus Kind = iota
	SpineMisalignment
	HipInstability
	BarPath
)

// NumKinds is the number of detectors.
const NumKinds = 4

var kindNames = [NumKinds]string{"knee_valgus", "spine_misalignment", "hip_instability", "bar_path"}

var kindCategories = [NumKinds]string{"knee_alignment", "spine_alignment", "hip_stability", "bar_path_efficiency"}

var kindJoints = [NumKinds][]pose.Joint{
	KneeValgus:        {pose.LeftKnee, pose.RightKnee},
	SpineMisalignment: {pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip},
	HipInstability:    {pose.LeftHip, pose.RightHip},
	BarPath:           nil,
}

// Kinds returns every kind in reporting order.
func Kinds() []Kind {
	return []Kind{KneeValgus, SpineMisalignment, HipInstability, BarPath}
}

func (k Kind) valid() bool { return k >= 0 && int(k) < NumKinds }

// String returns the snake_case error name.
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Category returns the score category the kind feeds.
func (k Kind) Category() string {
	if !k.valid() {
		return ""
	}
	return kindCategories[k]
}

// Joints returns the joints highlighted when the error is present.
func (k Kind) Joints() []pose.Joint {
	if !k.valid() {
		return nil
	}
	return append([]pose.Joint(nil), kindJoints[k]...)
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("unknown error kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, n := range kindNames {
		if n == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", string(b))
}
