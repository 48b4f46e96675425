package tracking

import (
	"math"

	"github.com/euzop/Powerlift/internal/config"
	"github.com/euzop/Powerlift/internal/monitoring"
	"github.com/euzop/Powerlift/internal/pose"
	"gonum.org/v1/gonum/mat"
)

// MinDeterminantThreshold is the smallest innovation covariance determinant
// accepted for inversion. Smaller values skip the correction step.
const MinDeterminantThreshold = 1e-12

// Config holds the filter parameters.
type Config struct {
	FPS               float64 // Frame rate; the time step is 1/FPS
	ProcessNoise      float64 // Position process noise q; velocity uses 2q
	MeasurementNoise  float64 // Measurement noise r at confidence 1
	ConfidenceFloor   float64 // Below this a detection is ignored; also the R divisor floor
	MaxCovarianceDiag float64 // Cap on each covariance diagonal element
}

// DefaultConfig returns the built-in filter defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		FPS:               cfg.GetFPS(),
		ProcessNoise:      cfg.GetProcessNoise(),
		MeasurementNoise:  cfg.GetMeasurementNoise(),
		ConfidenceFloor:   cfg.GetSmoothingConfidenceFloor(),
		MaxCovarianceDiag: cfg.GetMaxCovarianceDiag(),
	}
}

// jointFilter is the per-joint Kalman state: x = [x, y, vx, vy] and its
// 4x4 covariance.
type jointFilter struct {
	x           *mat.VecDense
	p           *mat.Dense
	initialized bool
}

// JointState is a copy of one joint's filter state.
type JointState struct {
	State       [4]float64  // [x, y, vx, vy]
	Covariance  [16]float64 // row-major 4x4
	Initialized bool
}

// SmoothResult is the outcome of smoothing one frame.
type SmoothResult struct {
	Estimates   []pose.Estimate
	Confidences []float64 // reshaped raw confidences, aligned with Estimates
	Shape       pose.ShapeStatus
}

// Skeleton pairs the estimates with their confidences.
func (r SmoothResult) Skeleton() pose.Skeleton {
	return pose.NewSkeleton(r.Estimates, r.Confidences)
}

// KeypointTracker runs one independent constant-velocity filter per joint.
type KeypointTracker struct {
	cfg    Config
	joints []jointFilter

	f   *mat.Dense     // state transition
	h   *mat.Dense     // observation model
	q   *mat.Dense     // process noise
	r   *mat.Dense     // measurement noise at confidence 1
	eye *mat.DiagDense // 4x4 identity
}

// NewKeypointTracker creates a tracker for numJoints joints.
func NewKeypointTracker(cfg Config, numJoints int) *KeypointTracker {
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultConfig().FPS
	}
	if cfg.ConfidenceFloor <= 0 {
		cfg.ConfidenceFloor = DefaultConfig().ConfidenceFloor
	}
	dt := 1.0 / cfg.FPS
	q := cfg.ProcessNoise

	t := &KeypointTracker{
		cfg:    cfg,
		joints: make([]jointFilter, numJoints),
		// F = [1 0 dt 0; 0 1 0 dt; 0 0 1 0; 0 0 0 1]
		f: mat.NewDense(4, 4, []float64{
			1, 0, dt, 0,
			0, 1, 0, dt,
			0, 0, 1, 0,
			0, 0, 0, 1,
		}),
		// Only position is observed.
		h: mat.NewDense(2, 4, []float64{
			1, 0, 0, 0,
			0, 1, 0, 0,
		}),
		q: mat.NewDense(4, 4, []float64{
			q, 0, 0, 0,
			0, q, 0, 0,
			0, 0, 2 * q, 0,
			0, 0, 0, 2 * q,
		}),
		r: mat.NewDense(2, 2, []float64{
			cfg.MeasurementNoise, 0,
			0, cfg.MeasurementNoise,
		}),
		eye: mat.NewDiagDense(4, []float64{1, 1, 1, 1}),
	}
	t.Reset()
	return t
}

// NumJoints returns the number of filters.
func (t *KeypointTracker) NumJoints() int { return len(t.joints) }

// SetFPS updates the filter time step. Non-positive values are ignored.
func (t *KeypointTracker) SetFPS(fps float64) {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		monitoring.Diagf("tracking: ignoring invalid fps %v", fps)
		return
	}
	t.cfg.FPS = fps
	dt := 1.0 / fps
	t.f.Set(0, 2, dt)
	t.f.Set(1, 3, dt)
}

// Reset returns every joint to the uninitialised state.
func (t *KeypointTracker) Reset() {
	for i := range t.joints {
		t.resetJoint(i)
	}
}

func (t *KeypointTracker) resetJoint(i int) {
	t.joints[i] = jointFilter{
		x: mat.NewVecDense(4, nil),
		p: mat.NewDense(4, 4, []float64{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		}),
	}
}

func (t *KeypointTracker) valid(j pose.Joint) bool {
	return int(j) >= 0 && int(j) < len(t.joints)
}

func (t *KeypointTracker) estimate(jf *jointFilter) pose.Estimate {
	return pose.Estimate{
		X:  jf.x.AtVec(0),
		Y:  jf.x.AtVec(1),
		VX: jf.x.AtVec(2),
		VY: jf.x.AtVec(3),
		OK: true,
	}
}

// Predict advances joint j one time step and returns the predicted
// position. A joint that has never been measured has no estimate.
func (t *KeypointTracker) Predict(j pose.Joint) pose.Estimate {
	if !t.valid(j) || !t.joints[j].initialized {
		return pose.Estimate{}
	}
	jf := &t.joints[j]

	// x' = F x
	var x mat.VecDense
	x.MulVec(t.f, jf.x)

	// P' = F P F^T + Q
	var fp, p mat.Dense
	fp.Mul(t.f, jf.p)
	p.Mul(&fp, t.f.T())
	p.Add(&p, t.q)

	jf.x.CopyVec(&x)
	jf.p.Copy(&p)
	t.capCovariance(jf)

	if !isFinite(jf) {
		monitoring.Opsf("tracking: %s state became non-finite after predict, resetting", j)
		t.resetJoint(int(j))
		return pose.Estimate{}
	}
	return t.estimate(jf)
}

// Update corrects joint j with a measurement at the given confidence. The
// first update of a joint seeds its state with zero velocity.
func (t *KeypointTracker) Update(j pose.Joint, measurement pose.Point, confidence float64) pose.Estimate {
	if !t.valid(j) {
		return pose.Estimate{}
	}
	jf := &t.joints[j]

	if !jf.initialized {
		jf.x.SetVec(0, measurement.X)
		jf.x.SetVec(1, measurement.Y)
		jf.x.SetVec(2, 0)
		jf.x.SetVec(3, 0)
		jf.initialized = true
		return t.estimate(jf)
	}

	// Innovation y = z - H x
	z := mat.NewVecDense(2, []float64{measurement.X, measurement.Y})
	var hx, y mat.VecDense
	hx.MulVec(t.h, jf.x)
	y.SubVec(z, &hx)

	// S = H P H^T + R / max(c, floor)
	var pht, s, r mat.Dense
	pht.Mul(jf.p, t.h.T())
	s.Mul(t.h, &pht)
	r.Scale(1/math.Max(confidence, t.cfg.ConfidenceFloor), t.r)
	s.Add(&s, &r)

	if mat.Det(&s) < MinDeterminantThreshold {
		monitoring.Diagf("tracking: %s innovation covariance singular, skipping correction", j)
		return t.estimate(jf)
	}
	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		monitoring.Diagf("tracking: %s innovation covariance not invertible: %v", j, err)
		return t.estimate(jf)
	}

	// K = P H^T S^-1
	var k mat.Dense
	k.Mul(&pht, &sInv)

	// x' = x + K y
	var ky mat.VecDense
	ky.MulVec(&k, &y)
	jf.x.AddVec(jf.x, &ky)

	// P' = (I - K H) P
	var kh, ikh, p mat.Dense
	kh.Mul(&k, t.h)
	ikh.Sub(t.eye, &kh)
	p.Mul(&ikh, jf.p)
	jf.p.Copy(&p)

	if !isFinite(jf) {
		monitoring.Opsf("tracking: %s state became non-finite after update, reseeding", j)
		t.resetJoint(int(j))
		return t.Update(j, measurement, confidence)
	}
	return t.estimate(jf)
}

// Smooth filters one frame. Measurements and confidences are reshaped to
// the joint count first. Absent or low-confidence joints are predicted
// only; confident joints are corrected with Update, which seeds them on
// their first detection. Joints never seen yield no estimate.
func (t *KeypointTracker) Smooth(measurements []pose.Measurement, confidences []float64) SmoothResult {
	shaped := pose.Reshape(measurements, confidences, len(t.joints))
	if shaped.Status != pose.ShapeOK {
		monitoring.Diagf("tracking: %s frame shape: %v", shaped.Status, shaped.Issues)
	}

	out := SmoothResult{
		Estimates:   make([]pose.Estimate, len(t.joints)),
		Confidences: shaped.Confidences,
		Shape:       shaped.Status,
	}
	for i := range t.joints {
		j := pose.Joint(i)
		m := shaped.Measurements[i]
		c := shaped.Confidences[i]

		if !m.Present || c < t.cfg.ConfidenceFloor {
			out.Estimates[i] = t.Predict(j)
			continue
		}
		out.Estimates[i] = t.Update(j, m.Point, c)
	}
	return out
}

// JointState returns a copy of joint j's filter state. ok is false for an
// unknown joint index.
func (t *KeypointTracker) JointState(j pose.Joint) (JointState, bool) {
	if !t.valid(j) {
		return JointState{}, false
	}
	jf := &t.joints[j]
	var st JointState
	for i := 0; i < 4; i++ {
		st.State[i] = jf.x.AtVec(i)
		for k := 0; k < 4; k++ {
			st.Covariance[i*4+k] = jf.p.At(i, k)
		}
	}
	st.Initialized = jf.initialized
	return st, true
}

// capCovariance bounds the covariance diagonal so long gaps cannot inflate
// the uncertainty without limit.
func (t *KeypointTracker) capCovariance(jf *jointFilter) {
	if t.cfg.MaxCovarianceDiag <= 0 {
		return
	}
	for i := 0; i < 4; i++ {
		if jf.p.At(i, i) > t.cfg.MaxCovarianceDiag {
			jf.p.Set(i, i, t.cfg.MaxCovarianceDiag)
		}
	}
}

// isFinite reports whether the state vector and covariance diagonal are
// free of NaN and Inf.
func isFinite(jf *jointFilter) bool {
	for i := 0; i < 4; i++ {
		v := jf.x.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		d := jf.p.At(i, i)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return false
		}
	}
	return true
}
