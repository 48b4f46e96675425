package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/euzop/Powerlift/internal/config"
	"github.com/euzop/Powerlift/internal/pose"
	"github.com/euzop/Powerlift/internal/scoring"
	"github.com/euzop/Powerlift/internal/testutil"
	"github.com/euzop/Powerlift/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// liftJSONL encodes a clean deadlift as input lines.
func liftJSONL(t *testing.T, reps int) string {
	t.Helper()
	var sb strings.Builder
	for i, y := range testutil.Deadlift(reps, 15, 0.65, 0.15) {
		kps := testutil.AtHipHeight(y, 0.9)
		line := frameLine{Frame: &i, Keypoints: make([][]float64, len(kps))}
		for j, kp := range kps {
			line.Keypoints[j] = []float64{kp.X, kp.Y, kp.Confidence}
		}
		b := testutil.Barbell(0.5, y-0.1, 0.8)
		line.Barbell = []float64{b.X1, b.Y1, b.X2, b.Y2, b.Confidence}

		data, err := json.Marshal(line)
		require.NoError(t, err)
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestDecodeFrame(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		line        string
		wantIndex   int
		wantKps     int
		wantBarbell *pose.Barbell
		wantErr     string
	}{
		{
			name:        "full line",
			line:        `{"frame": 7, "keypoints": [[0.1, 0.2, 0.9], [0.3, 0.4, 0.5]], "barbell": [0.1, 0.2, 0.3, 0.4, 0.8]}`,
			wantIndex:   7,
			wantKps:     2,
			wantBarbell: &pose.Barbell{X1: 0.1, Y1: 0.2, X2: 0.3, Y2: 0.4, Confidence: 0.8},
		},
		{
			name:      "missing frame takes ordinal",
			line:      `{"keypoints": [[0.1, 0.2, 0.9]]}`,
			wantIndex: 3,
			wantKps:   1,
		},
		{
			name:      "null barbell",
			line:      `{"frame": 1, "keypoints": [], "barbell": null}`,
			wantIndex: 1,
		},
		{name: "short keypoint", line: `{"keypoints": [[0.1, 0.2]]}`, wantErr: "keypoint 0"},
		{name: "short barbell", line: `{"barbell": [0.1, 0.2, 0.3]}`, wantErr: "barbell"},
		{name: "malformed", line: `{"frame": `, wantErr: "failed to parse frame"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := decodeFrame([]byte(tt.line), 3)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIndex, f.Index)
			assert.Len(t, f.Keypoints, tt.wantKps)
			assert.Equal(t, tt.wantBarbell, f.Barbell)
		})
	}
}

func TestFrameReader(t *testing.T) {
	t.Parallel()
	in := "{\"keypoints\": []}\n\n   \n{\"frame\": 9}\n{\"keypoints\": [[1]]}\n"
	fr := newFrameReader(strings.NewReader(in))

	f, err := fr.Next()
	require.NoError(t, err)
	assert.Equal(t, 0, f.Index)

	f, err = fr.Next()
	require.NoError(t, err)
	assert.Equal(t, 9, f.Index)

	_, err = fr.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 5")
}

func TestFrameReaderEOF(t *testing.T) {
	t.Parallel()
	_, err := newFrameReader(strings.NewReader("")).Next()
	assert.Equal(t, io.EOF, err)
}

func TestRunOffline(t *testing.T) {
	t.Parallel()
	res, err := run(context.Background(), options{
		tuning:   config.EmptyTuningConfig(),
		exercise: scoring.Deadlift,
	}, strings.NewReader(liftJSONL(t, 3)))
	require.NoError(t, err)

	assert.Equal(t, 3, res.summary.RepCount)
	assert.Equal(t, scoring.Deadlift, res.summary.Exercise)
	assert.Equal(t, len(testutil.Deadlift(3, 15, 0.65, 0.15)), res.summary.FramesProcessed)
	assert.Equal(t, 100.0, res.summary.Scores.Overall)
	assert.Len(t, res.trajectory.RepMarkers, 3)
}

func TestRunSkipsRejectedFrames(t *testing.T) {
	t.Parallel()
	// The repeated frame 0 is out of order and is skipped.
	in := "{\"frame\": 0, \"keypoints\": []}\n{\"frame\": 1, \"keypoints\": []}\n{\"frame\": 0, \"keypoints\": []}\n"
	res, err := run(context.Background(), options{
		tuning:   config.EmptyTuningConfig(),
		exercise: scoring.Squat,
	}, strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, res.summary.FramesProcessed)
}

func TestRunAbortsOnBadLine(t *testing.T) {
	t.Parallel()
	_, err := run(context.Background(), options{
		tuning:   config.EmptyTuningConfig(),
		exercise: scoring.Deadlift,
	}, strings.NewReader("{\"frame\": 0}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestRunLive(t *testing.T) {
	t.Parallel()
	queue := 1000
	tuning := config.EmptyTuningConfig()
	tuning.QueueSize = &queue
	clock := timeutil.NewMockClock(time.Unix(0, 0))

	res, err := run(context.Background(), options{
		tuning:   tuning,
		exercise: scoring.Deadlift,
		fps:      50,
		live:     true,
		clock:    clock,
	}, strings.NewReader(liftJSONL(t, 2)))
	require.NoError(t, err)

	n := len(testutil.Deadlift(2, 15, 0.65, 0.15))
	assert.Equal(t, 2, res.summary.RepCount)
	assert.Equal(t, n, res.summary.FramesProcessed)

	sleeps := clock.Sleeps()
	require.Len(t, sleeps, n)
	assert.Equal(t, 20*time.Millisecond, sleeps[0])
}

func TestWriteReports(t *testing.T) {
	t.Parallel()
	res, err := run(context.Background(), options{
		tuning:   config.EmptyTuningConfig(),
		exercise: scoring.Deadlift,
	}, strings.NewReader(liftJSONL(t, 1)))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, writeReports(dir, res))

	for _, name := range []string{"report.html", "trajectory.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
}
