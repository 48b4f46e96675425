// Package pose owns the per-frame data model of the analysis engine.
//
// Responsibilities: the fixed joint index set, raw detector keypoints,
// tracker measurements and estimates, the smoothed skeleton consumed by the
// phase detector and form checks, barbell boxes, and the reshape-or-report
// validation applied to every incoming frame.
//
// Coordinates are normalized to the frame: x and y lie in [0, 1] and y grows
// downward, so a rising hip has a decreasing y.
package pose
