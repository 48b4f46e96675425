// Package tracking owns keypoint smoothing.
//
// Responsibilities: one constant-velocity Kalman filter per joint, lazy
// initialisation on the first confident measurement, predict-only bridging
// of missing or low-confidence detections, and confidence-weighted
// measurement noise.
// Key types: KeypointTracker, Config, JointState.
//
// A KeypointTracker is owned by a single analysis session and is not safe
// for concurrent use.
package tracking
