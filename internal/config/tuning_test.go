package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyTuningConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	assert.Equal(t, 30.0, cfg.GetFPS())
	assert.Equal(t, 0.03, cfg.GetProcessNoise())
	assert.Equal(t, 0.1, cfg.GetMeasurementNoise())
	assert.Equal(t, 0.1, cfg.GetSmoothingConfidenceFloor())
	assert.Equal(t, 0.5, cfg.GetDetectionConfidenceFloor())
	assert.Equal(t, 10, cfg.GetPhaseWarmupWindow())
	assert.Equal(t, 20, cfg.GetRepHistoryWindow())
	assert.Equal(t, 5, cfg.GetRepWindow())
	assert.Equal(t, 0.15, cfg.GetKneeDeviationThreshold())
	assert.Equal(t, 20.0, cfg.GetSpineAngleThresholdDeg())
	assert.Equal(t, 0.1, cfg.GetHipAsymmetryThresholdDeg())
	assert.Equal(t, 5, cfg.GetBarWindow())
	assert.Equal(t, 0.25, cfg.GetBarbellConfidenceFloor())
	assert.Equal(t, 0.10, cfg.GetBarbellRateFloor())
	assert.Equal(t, 70.0, cfg.GetGeneralFeedbackThreshold())
	assert.Equal(t, 80.0, cfg.GetExerciseFeedbackThreshold())
	assert.Equal(t, 10, cfg.GetQueueSize())
	assert.Equal(t, DropNewest, cfg.GetDropPolicy())
	assert.Equal(t, 5*time.Second, cfg.GetStatsInterval())
	require.NoError(t, cfg.Validate())
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "session.json")

	testJSON := `{
  "fps": 60,
  "knee_deviation_threshold": 0.2,
  "drop_policy": "drop_oldest",
  "stats_interval": "250ms"
}`
	require.NoError(t, os.WriteFile(configPath, []byte(testJSON), 0644))

	cfg, err := LoadTuningConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 60.0, cfg.GetFPS())
	assert.Equal(t, 0.2, cfg.GetKneeDeviationThreshold())
	assert.Equal(t, DropOldest, cfg.GetDropPolicy())
	assert.Equal(t, 250*time.Millisecond, cfg.GetStatsInterval())

	// Omitted fields keep their defaults.
	assert.Equal(t, 0.5, cfg.GetDetectionConfidenceFloor())
	assert.Equal(t, 5, cfg.GetRepWindow())
}

func TestLoadTuningConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"wrong extension", "cfg.yaml", `{}`, ".json extension"},
		{"malformed json", "bad.json", `{"fps":`, "failed to parse"},
		{"negative fps", "fps.json", `{"fps": -1}`, "fps must be positive"},
		{"even rep window", "rep.json", `{"rep_window": 6}`, "rep_window must be odd"},
		{"floor out of range", "floor.json", `{"barbell_rate_floor": 1.5}`, "barbell_rate_floor"},
		{"unknown drop policy", "drop.json", `{"drop_policy": "block"}`, "drop_policy"},
		{"bad duration", "dur.json", `{"stats_interval": "soon"}`, "stats_interval"},
		{"spine threshold", "spine.json", `{"spine_angle_threshold_deg": 95}`, "spine_angle_threshold_deg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadTuningConfig(path)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should mention %q", err, tt.wantErr)
		})
	}
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stat")
}

func TestMustLoadDefaultConfigMatchesAccessorDefaults(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	empty := EmptyTuningConfig()

	// The defaults file and the built-in accessor defaults must agree.
	assert.Equal(t, empty.GetFPS(), cfg.GetFPS())
	assert.Equal(t, empty.GetProcessNoise(), cfg.GetProcessNoise())
	assert.Equal(t, empty.GetMovingThreshold(), cfg.GetMovingThreshold())
	assert.Equal(t, empty.GetBarSpreadThreshold(), cfg.GetBarSpreadThreshold())
	assert.Equal(t, empty.GetBarbellVisibilityWarning(), cfg.GetBarbellVisibilityWarning())
	assert.Equal(t, empty.GetBarbellConfidenceFloor(), cfg.GetBarbellConfidenceFloor())
	assert.Equal(t, empty.GetTrajectoryCapacity(), cfg.GetTrajectoryCapacity())
	assert.Equal(t, empty.GetStatsInterval(), cfg.GetStatsInterval())
}
