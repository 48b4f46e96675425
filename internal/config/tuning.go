package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Drop policies accepted by drop_policy.
const (
	DropNewest = "drop_newest"
	DropOldest = "drop_oldest"
)

// TuningConfig holds every tunable of the analysis engine. Fields are
// pointers so a partial JSON file only overrides what it names; the Get*
// accessors supply defaults for the rest.
type TuningConfig struct {
	// Keypoint smoothing
	FPS                      *float64 `json:"fps,omitempty"`
	ProcessNoise             *float64 `json:"process_noise,omitempty"`
	MeasurementNoise         *float64 `json:"measurement_noise,omitempty"`
	SmoothingConfidenceFloor *float64 `json:"smoothing_confidence_floor,omitempty"`
	MaxCovarianceDiag        *float64 `json:"max_covariance_diag,omitempty"`

	// Phase and repetition detection
	DetectionConfidenceFloor *float64 `json:"detection_confidence_floor,omitempty"`
	PhaseWarmupWindow        *int     `json:"phase_warmup_window,omitempty"`
	RepHistoryWindow         *int     `json:"rep_history_window,omitempty"`
	RepWindow                *int     `json:"rep_window,omitempty"`
	MovingThreshold          *float64 `json:"moving_threshold,omitempty"`
	RepMarkerCapacity        *int     `json:"rep_marker_capacity,omitempty"`

	// Form checks
	KneeDeviationThreshold   *float64 `json:"knee_deviation_threshold,omitempty"`
	SpineAngleThresholdDeg   *float64 `json:"spine_angle_threshold_deg,omitempty"`
	HipAsymmetryThresholdDeg *float64 `json:"hip_asymmetry_threshold_deg,omitempty"`
	BarSpreadThreshold       *float64 `json:"bar_spread_threshold,omitempty"`
	BarWindow                *int     `json:"bar_window,omitempty"`

	// Scoring and feedback
	BarbellConfidenceFloor    *float64 `json:"barbell_confidence_floor,omitempty"`
	BarbellRateFloor          *float64 `json:"barbell_rate_floor,omitempty"`
	BarbellVisibilityWarning  *float64 `json:"barbell_visibility_warning,omitempty"`
	GeneralFeedbackThreshold  *float64 `json:"general_feedback_threshold,omitempty"`
	ExerciseFeedbackThreshold *float64 `json:"exercise_feedback_threshold,omitempty"`
	ScoreRecomputeInterval    *int     `json:"score_recompute_interval,omitempty"`
	ScoreSmoothingWindow      *int     `json:"score_smoothing_window,omitempty"`

	// Live worker
	QueueSize          *int    `json:"queue_size,omitempty"`
	DropPolicy         *string `json:"drop_policy,omitempty"`
	StatsInterval      *string `json:"stats_interval,omitempty"` // duration string like "5s"
	TrajectoryCapacity *int    `json:"trajectory_capacity,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil, so
// every accessor yields its built-in default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from cmd/liftscore/ nested packages
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.FPS != nil && *c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %f", *c.FPS)
	}
	if c.ProcessNoise != nil && *c.ProcessNoise < 0 {
		return fmt.Errorf("process_noise must be non-negative, got %f", *c.ProcessNoise)
	}
	if c.MeasurementNoise != nil && *c.MeasurementNoise <= 0 {
		return fmt.Errorf("measurement_noise must be positive, got %f", *c.MeasurementNoise)
	}

	for name, v := range map[string]*float64{
		"smoothing_confidence_floor": c.SmoothingConfidenceFloor,
		"detection_confidence_floor": c.DetectionConfidenceFloor,
		"barbell_confidence_floor":   c.BarbellConfidenceFloor,
		"barbell_rate_floor":         c.BarbellRateFloor,
		"barbell_visibility_warning": c.BarbellVisibilityWarning,
	} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
	}

	for name, v := range map[string]*float64{
		"general_feedback_threshold":  c.GeneralFeedbackThreshold,
		"exercise_feedback_threshold": c.ExerciseFeedbackThreshold,
	} {
		if v != nil && (*v < 0 || *v > 100) {
			return fmt.Errorf("%s must be between 0 and 100, got %f", name, *v)
		}
	}

	if c.SpineAngleThresholdDeg != nil && (*c.SpineAngleThresholdDeg <= 0 || *c.SpineAngleThresholdDeg >= 90) {
		return fmt.Errorf("spine_angle_threshold_deg must be in (0, 90), got %f", *c.SpineAngleThresholdDeg)
	}
	if c.HipAsymmetryThresholdDeg != nil && (*c.HipAsymmetryThresholdDeg < 0 || *c.HipAsymmetryThresholdDeg >= 45) {
		return fmt.Errorf("hip_asymmetry_threshold_deg must be in [0, 45), got %f", *c.HipAsymmetryThresholdDeg)
	}
	if c.KneeDeviationThreshold != nil && *c.KneeDeviationThreshold <= 0 {
		return fmt.Errorf("knee_deviation_threshold must be positive, got %f", *c.KneeDeviationThreshold)
	}
	if c.BarSpreadThreshold != nil && *c.BarSpreadThreshold <= 0 {
		return fmt.Errorf("bar_spread_threshold must be positive, got %f", *c.BarSpreadThreshold)
	}

	if c.RepWindow != nil && (*c.RepWindow < 5 || *c.RepWindow%2 == 0) {
		return fmt.Errorf("rep_window must be odd and at least 5, got %d", *c.RepWindow)
	}
	for name, v := range map[string]*int{
		"phase_warmup_window":      c.PhaseWarmupWindow,
		"rep_history_window":       c.RepHistoryWindow,
		"bar_window":               c.BarWindow,
		"score_recompute_interval": c.ScoreRecomputeInterval,
		"score_smoothing_window":   c.ScoreSmoothingWindow,
		"queue_size":               c.QueueSize,
		"trajectory_capacity":      c.TrajectoryCapacity,
		"rep_marker_capacity":      c.RepMarkerCapacity,
	} {
		if v != nil && *v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", name, *v)
		}
	}
	if c.PhaseWarmupWindow != nil && *c.PhaseWarmupWindow < 2 {
		return fmt.Errorf("phase_warmup_window must be at least 2, got %d", *c.PhaseWarmupWindow)
	}

	if c.DropPolicy != nil && *c.DropPolicy != DropNewest && *c.DropPolicy != DropOldest {
		return fmt.Errorf("drop_policy must be %q or %q, got %q", DropNewest, DropOldest, *c.DropPolicy)
	}

	if c.StatsInterval != nil && *c.StatsInterval != "" {
		if _, err := time.ParseDuration(*c.StatsInterval); err != nil {
			return fmt.Errorf("invalid stats_interval '%s': %w", *c.StatsInterval, err)
		}
	}

	return nil
}

// GetFPS returns the fps value or the default.
func (c *TuningConfig) GetFPS() float64 {
	if c.FPS == nil {
		return 30
	}
	return *c.FPS
}

// GetProcessNoise returns the process_noise value or the default.
func (c *TuningConfig) GetProcessNoise() float64 {
	if c.ProcessNoise == nil {
		return 0.03
	}
	return *c.ProcessNoise
}

// GetMeasurementNoise returns the measurement_noise value or the default.
func (c *TuningConfig) GetMeasurementNoise() float64 {
	if c.MeasurementNoise == nil {
		return 0.1
	}
	return *c.MeasurementNoise
}

// GetSmoothingConfidenceFloor returns the smoothing_confidence_floor value or the default.
func (c *TuningConfig) GetSmoothingConfidenceFloor() float64 {
	if c.SmoothingConfidenceFloor == nil {
		return 0.1
	}
	return *c.SmoothingConfidenceFloor
}

// GetMaxCovarianceDiag returns the max_covariance_diag value or the default.
func (c *TuningConfig) GetMaxCovarianceDiag() float64 {
	if c.MaxCovarianceDiag == nil {
		return 10
	}
	return *c.MaxCovarianceDiag
}

// GetDetectionConfidenceFloor returns the detection_confidence_floor value or the default.
func (c *TuningConfig) GetDetectionConfidenceFloor() float64 {
	if c.DetectionConfidenceFloor == nil {
		return 0.5
	}
	return *c.DetectionConfidenceFloor
}

// GetPhaseWarmupWindow returns the phase_warmup_window value or the default.
func (c *TuningConfig) GetPhaseWarmupWindow() int {
	if c.PhaseWarmupWindow == nil {
		return 10
	}
	return *c.PhaseWarmupWindow
}

// GetRepHistoryWindow returns the rep_history_window value or the default.
func (c *TuningConfig) GetRepHistoryWindow() int {
	if c.RepHistoryWindow == nil {
		return 20
	}
	return *c.RepHistoryWindow
}

// GetRepWindow returns the rep_window value or the default.
func (c *TuningConfig) GetRepWindow() int {
	if c.RepWindow == nil {
		return 5
	}
	return *c.RepWindow
}

// GetMovingThreshold returns the moving_threshold value or the default.
func (c *TuningConfig) GetMovingThreshold() float64 {
	if c.MovingThreshold == nil {
		return 0.02
	}
	return *c.MovingThreshold
}

// GetRepMarkerCapacity returns the rep_marker_capacity value or the default.
func (c *TuningConfig) GetRepMarkerCapacity() int {
	if c.RepMarkerCapacity == nil {
		return 512
	}
	return *c.RepMarkerCapacity
}

// GetKneeDeviationThreshold returns the knee_deviation_threshold value or the default.
func (c *TuningConfig) GetKneeDeviationThreshold() float64 {
	if c.KneeDeviationThreshold == nil {
		return 0.15
	}
	return *c.KneeDeviationThreshold
}

// GetSpineAngleThresholdDeg returns the spine_angle_threshold_deg value or the default.
func (c *TuningConfig) GetSpineAngleThresholdDeg() float64 {
	if c.SpineAngleThresholdDeg == nil {
		return 20
	}
	return *c.SpineAngleThresholdDeg
}

// GetHipAsymmetryThresholdDeg returns the hip_asymmetry_threshold_deg value or the default.
func (c *TuningConfig) GetHipAsymmetryThresholdDeg() float64 {
	if c.HipAsymmetryThresholdDeg == nil {
		return 0.1
	}
	return *c.HipAsymmetryThresholdDeg
}

// GetBarSpreadThreshold returns the bar_spread_threshold value or the default.
func (c *TuningConfig) GetBarSpreadThreshold() float64 {
	if c.BarSpreadThreshold == nil {
		return 0.05
	}
	return *c.BarSpreadThreshold
}

// GetBarWindow returns the bar_window value or the default.
func (c *TuningConfig) GetBarWindow() int {
	if c.BarWindow == nil {
		return 5
	}
	return *c.BarWindow
}

// GetBarbellConfidenceFloor returns the barbell_confidence_floor value or the default.
func (c *TuningConfig) GetBarbellConfidenceFloor() float64 {
	if c.BarbellConfidenceFloor == nil {
		return 0.25
	}
	return *c.BarbellConfidenceFloor
}

// GetBarbellRateFloor returns the barbell_rate_floor value or the default.
func (c *TuningConfig) GetBarbellRateFloor() float64 {
	if c.BarbellRateFloor == nil {
		return 0.10
	}
	return *c.BarbellRateFloor
}

// GetBarbellVisibilityWarning returns the barbell_visibility_warning value or the default.
func (c *TuningConfig) GetBarbellVisibilityWarning() float64 {
	if c.BarbellVisibilityWarning == nil {
		return 0.30
	}
	return *c.BarbellVisibilityWarning
}

// GetGeneralFeedbackThreshold returns the general_feedback_threshold value or the default.
func (c *TuningConfig) GetGeneralFeedbackThreshold() float64 {
	if c.GeneralFeedbackThreshold == nil {
		return 70
	}
	return *c.GeneralFeedbackThreshold
}

// GetExerciseFeedbackThreshold returns the exercise_feedback_threshold value or the default.
func (c *TuningConfig) GetExerciseFeedbackThreshold() float64 {
	if c.ExerciseFeedbackThreshold == nil {
		return 80
	}
	return *c.ExerciseFeedbackThreshold
}

// GetScoreRecomputeInterval returns the score_recompute_interval value or the default.
func (c *TuningConfig) GetScoreRecomputeInterval() int {
	if c.ScoreRecomputeInterval == nil {
		return 1
	}
	return *c.ScoreRecomputeInterval
}

// GetScoreSmoothingWindow returns the score_smoothing_window value or the default.
func (c *TuningConfig) GetScoreSmoothingWindow() int {
	if c.ScoreSmoothingWindow == nil {
		return 5
	}
	return *c.ScoreSmoothingWindow
}

// GetQueueSize returns the queue_size value or the default.
func (c *TuningConfig) GetQueueSize() int {
	if c.QueueSize == nil {
		return 10
	}
	return *c.QueueSize
}

// GetDropPolicy returns the drop_policy value or the default.
func (c *TuningConfig) GetDropPolicy() string {
	if c.DropPolicy == nil || *c.DropPolicy == "" {
		return DropNewest
	}
	return *c.DropPolicy
}

// GetStatsInterval parses and returns the StatsInterval as a time.Duration.
func (c *TuningConfig) GetStatsInterval() time.Duration {
	if c.StatsInterval == nil || *c.StatsInterval == "" {
		return 5 * time.Second // default
	}
	d, err := time.ParseDuration(*c.StatsInterval)
	if err != nil {
		return 5 * time.Second // default on parse error
	}
	return d
}

// GetTrajectoryCapacity returns the trajectory_capacity value or the default.
func (c *TuningConfig) GetTrajectoryCapacity() int {
	if c.TrajectoryCapacity == nil {
		return 3600
	}
	return *c.TrajectoryCapacity
}
