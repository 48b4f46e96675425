package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/euzop/Powerlift/internal/pose"
	"github.com/euzop/Powerlift/internal/session"
)

const maxLineBytes = 1 << 20

// frameLine is one JSON line of input:
//
//	{"frame": 12, "keypoints": [[x, y, c], ...], "barbell": [x1, y1, x2, y2, c]}
//
// barbell may be null or omitted. A missing frame number takes the line
// ordinal.
type frameLine struct {
	Frame     *int        `json:"frame"`
	Keypoints [][]float64 `json:"keypoints"`
	Barbell   []float64   `json:"barbell"`
}

func decodeFrame(line []byte, ordinal int) (session.Frame, error) {
	var fl frameLine
	if err := json.Unmarshal(line, &fl); err != nil {
		return session.Frame{}, fmt.Errorf("failed to parse frame: %w", err)
	}

	f := session.Frame{Index: ordinal}
	if fl.Frame != nil {
		f.Index = *fl.Frame
	}

	f.Keypoints = make([]pose.Keypoint, len(fl.Keypoints))
	for i, kp := range fl.Keypoints {
		if len(kp) != 3 {
			return session.Frame{}, fmt.Errorf("keypoint %d: want [x, y, confidence], got %d values", i, len(kp))
		}
		f.Keypoints[i] = pose.Keypoint{X: kp[0], Y: kp[1], Confidence: kp[2]}
	}

	switch len(fl.Barbell) {
	case 0:
	case 5:
		b := fl.Barbell
		f.Barbell = &pose.Barbell{X1: b[0], Y1: b[1], X2: b[2], Y2: b[3], Confidence: b[4]}
	default:
		return session.Frame{}, fmt.Errorf("barbell: want [x1, y1, x2, y2, confidence], got %d values", len(fl.Barbell))
	}
	return f, nil
}

// frameReader yields frames from a JSON lines stream. Blank lines are
// skipped.
type frameReader struct {
	sc      *bufio.Scanner
	line    int
	ordinal int
}

func newFrameReader(r io.Reader) *frameReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &frameReader{sc: sc}
}

// Next returns the next frame, or io.EOF at the end of input.
func (fr *frameReader) Next() (session.Frame, error) {
	for fr.sc.Scan() {
		fr.line++
		line := bytes.TrimSpace(fr.sc.Bytes())
		if len(line) == 0 {
			continue
		}
		f, err := decodeFrame(line, fr.ordinal)
		if err != nil {
			return session.Frame{}, fmt.Errorf("line %d: %w", fr.line, err)
		}
		fr.ordinal++
		return f, nil
	}
	if err := fr.sc.Err(); err != nil {
		return session.Frame{}, fmt.Errorf("line %d: %w", fr.line+1, err)
	}
	return session.Frame{}, io.EOF
}
