// Package scoring accumulates form findings over a session and converts
// them into bounded sub-scores, an overall score and feedback text.
package scoring

import (
	"math"

	"github.com/euzop/Powerlift/internal/config"
	"github.com/euzop/Powerlift/internal/formcheck"
	"github.com/euzop/Powerlift/internal/history"
	"gonum.org/v1/gonum/stat"
)

// recentCapacity bounds the per-kind recent severity and frame histories.
const recentCapacity = 30

// Weights of each sub-score in the overall score, indexed by
// formcheck.Kind. Spine carries the most weight.
var Weights = [formcheck.NumKinds]float64{
	formcheck.KneeValgus:        0.25,
	formcheck.SpineMisalignment: 0.30,
	formcheck.HipInstability:    0.25,
	formcheck.BarPath:           0.20,
}

// Config holds aggregation and feedback settings.
type Config struct {
	BarbellRateFloor  float64 // Below this every score is forced to zero
	VisibilityWarning float64 // Below this feedback notes poor bar visibility
	GeneralThreshold  float64
	ExerciseThreshold float64
	RecomputeInterval int // Frames between cadence recomputes
	SmoothingWindow   int // Recomputes kept for the smoothed view
}

// DefaultConfig returns the built-in aggregation defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		BarbellRateFloor:  cfg.GetBarbellRateFloor(),
		VisibilityWarning: cfg.GetBarbellVisibilityWarning(),
		GeneralThreshold:  cfg.GetGeneralFeedbackThreshold(),
		ExerciseThreshold: cfg.GetExerciseFeedbackThreshold(),
		RecomputeInterval: cfg.GetScoreRecomputeInterval(),
		SmoothingWindow:   cfg.GetScoreSmoothingWindow(),
	}
}

// Scores holds the four sub-scores and the overall score, all in [0, 100].
type Scores struct {
	KneeAlignment     float64 `json:"knee_alignment"`
	SpineAlignment    float64 `json:"spine_alignment"`
	HipStability      float64 `json:"hip_stability"`
	BarPathEfficiency float64 `json:"bar_path_efficiency"`
	Overall           float64 `json:"overall"`
}

// Sub returns the sub-score fed by kind k.
func (s Scores) Sub(k formcheck.Kind) float64 {
	switch k {
	case formcheck.KneeValgus:
		return s.KneeAlignment
	case formcheck.SpineMisalignment:
		return s.SpineAlignment
	case formcheck.HipInstability:
		return s.HipStability
	case formcheck.BarPath:
		return s.BarPathEfficiency
	}
	return 0
}

func (s *Scores) setSub(k formcheck.Kind, v float64) {
	switch k {
	case formcheck.KneeValgus:
		s.KneeAlignment = v
	case formcheck.SpineMisalignment:
		s.SpineAlignment = v
	case formcheck.HipInstability:
		s.HipStability = v
	case formcheck.BarPath:
		s.BarPathEfficiency = v
	}
}

func (s Scores) fields() [5]float64 {
	return [5]float64{s.KneeAlignment, s.SpineAlignment, s.HipStability, s.BarPathEfficiency, s.Overall}
}

func scoresFromFields(f [5]float64) Scores {
	return Scores{KneeAlignment: f[0], SpineAlignment: f[1], HipStability: f[2], BarPathEfficiency: f[3], Overall: f[4]}
}

// SubScore is 100·exp(−3·rate·(1+severity)) clamped to [0, 100]. It is
// 100 at rate 0 and strictly decreasing in both arguments otherwise.
func SubScore(rate, meanSeverity float64) float64 {
	v := 100 * math.Exp(-3*rate*(1+meanSeverity))
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

// Overall is the weighted sum of the four sub-scores, clamped to [0, 100].
func Overall(s Scores) float64 {
	var total float64
	for _, k := range formcheck.Kinds() {
		total += Weights[k] * s.Sub(k)
	}
	return math.Max(0, math.Min(100, total))
}

// KindStats summarises one error kind.
type KindStats struct {
	Kind               formcheck.Kind `json:"kind"`
	Occurrences        int            `json:"occurrences"`
	ErrorRate          float64        `json:"error_rate"`
	MeanSeverity       float64        `json:"mean_severity"`
	RecentMeanSeverity float64        `json:"recent_mean_severity"`
	RecentFrames       []int          `json:"recent_frames,omitempty"`
}

// Result is a snapshot of the aggregate.
type Result struct {
	Scores               Scores      `json:"scores"`
	Smoothed             Scores      `json:"smoothed"`
	BarbellDetectionRate float64     `json:"barbell_detection_rate"`
	CannotAssess         bool        `json:"cannot_assess"`
	InsufficientData     bool        `json:"insufficient_data"`
	TotalFrames          int         `json:"total_frames"`
	BarbellFrames        int         `json:"barbell_frames"`
	Errors               []KindStats `json:"errors"`
}

type kindAccumulator struct {
	occurrences  int
	severitySum  float64
	recentSev    *history.Ring[float64]
	recentFrames *history.Ring[int]
}

// Aggregator accumulates findings for one session. It is not safe for
// concurrent use.
type Aggregator struct {
	cfg            Config
	kinds          [formcheck.NumKinds]kindAccumulator
	totalFrames    int
	barbellFrames  int
	sinceRecompute int
	smoothing      *history.Ring[Scores]
	last           Result
}

// NewAggregator creates an empty aggregator.
func NewAggregator(cfg Config) *Aggregator {
	if cfg.RecomputeInterval < 1 {
		cfg.RecomputeInterval = 1
	}
	a := &Aggregator{
		cfg:       cfg,
		smoothing: history.NewRing[Scores](cfg.SmoothingWindow),
	}
	for i := range a.kinds {
		a.kinds[i] = kindAccumulator{
			recentSev:    history.NewRing[float64](recentCapacity),
			recentFrames: history.NewRing[int](recentCapacity),
		}
	}
	a.last = a.compute()
	return a
}

// Config returns the aggregator configuration.
func (a *Aggregator) Config() Config { return a.cfg }

// Record accumulates one frame's findings. Every RecomputeInterval frames
// the scores are recomputed and pushed into the smoothing window.
func (a *Aggregator) Record(frameIndex int, findings []formcheck.Finding, barbellDetected bool) {
	a.totalFrames++
	if barbellDetected {
		a.barbellFrames++
	}
	for _, f := range findings {
		if !f.Present || f.Kind < 0 || int(f.Kind) >= formcheck.NumKinds {
			continue
		}
		acc := &a.kinds[f.Kind]
		sev := math.Max(0, math.Min(1, f.Severity))
		acc.occurrences++
		acc.severitySum += sev
		acc.recentSev.Push(sev)
		acc.recentFrames.Push(frameIndex)
	}

	a.sinceRecompute++
	if a.sinceRecompute >= a.cfg.RecomputeInterval {
		a.Recompute()
	}
}

// Recompute recalculates the scores, adds them to the smoothing window and
// returns the new snapshot.
func (a *Aggregator) Recompute() Result {
	a.sinceRecompute = 0
	res := a.compute()
	if !res.InsufficientData {
		a.smoothing.Push(res.Scores)
	}
	res.Smoothed = a.smoothed(res.Scores)
	a.last = res
	return res
}

// Latest returns the snapshot from the most recent recompute.
func (a *Aggregator) Latest() Result { return cloneResult(a.last) }

// Result computes exact scores over everything recorded so far without
// touching the smoothing window.
func (a *Aggregator) Result() Result {
	res := a.compute()
	res.Smoothed = a.smoothed(res.Scores)
	return res
}

func (a *Aggregator) compute() Result {
	res := Result{
		TotalFrames:   a.totalFrames,
		BarbellFrames: a.barbellFrames,
		Errors:        make([]KindStats, 0, formcheck.NumKinds),
	}
	for _, k := range formcheck.Kinds() {
		acc := &a.kinds[k]
		ks := KindStats{Kind: k, Occurrences: acc.occurrences, RecentFrames: acc.recentFrames.Values()}
		if acc.occurrences > 0 {
			ks.MeanSeverity = acc.severitySum / float64(acc.occurrences)
			ks.RecentMeanSeverity = stat.Mean(acc.recentSev.Values(), nil)
		}
		if a.totalFrames > 0 {
			ks.ErrorRate = float64(acc.occurrences) / float64(a.totalFrames)
		}
		res.Errors = append(res.Errors, ks)
	}

	if a.totalFrames == 0 {
		res.InsufficientData = true
		return res
	}

	res.BarbellDetectionRate = float64(a.barbellFrames) / float64(a.totalFrames)
	for _, ks := range res.Errors {
		res.Scores.setSub(ks.Kind, SubScore(ks.ErrorRate, ks.MeanSeverity))
	}
	res.Scores.Overall = Overall(res.Scores)

	if res.BarbellDetectionRate < a.cfg.BarbellRateFloor {
		res.Scores = Scores{}
		res.CannotAssess = true
	}
	return res
}

// smoothed is the recency-weighted mean of the smoothing window, with
// weights 1..n from oldest to newest. An empty window yields current.
func (a *Aggregator) smoothed(current Scores) Scores {
	window := a.smoothing.Values()
	if len(window) == 0 {
		return current
	}
	weights := make([]float64, len(window))
	for i := range weights {
		weights[i] = float64(i + 1)
	}
	var out [5]float64
	values := make([]float64, len(window))
	for f := range out {
		for i, s := range window {
			values[i] = s.fields()[f]
		}
		out[f] = stat.Mean(values, weights)
	}
	return scoresFromFields(out)
}

// Reset discards all accumulated state.
func (a *Aggregator) Reset() {
	for i := range a.kinds {
		a.kinds[i].occurrences = 0
		a.kinds[i].severitySum = 0
		a.kinds[i].recentSev.Reset()
		a.kinds[i].recentFrames.Reset()
	}
	a.totalFrames = 0
	a.barbellFrames = 0
	a.sinceRecompute = 0
	a.smoothing.Reset()
	a.last = a.compute()
}

func cloneResult(r Result) Result {
	out := r
	out.Errors = make([]KindStats, len(r.Errors))
	for i, ks := range r.Errors {
		ks.RecentFrames = append([]int(nil), ks.RecentFrames...)
		out.Errors[i] = ks
	}
	return out
}
