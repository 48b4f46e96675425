package monitoring

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// Setting nil must install a no-op that never reaches the old logger.
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogStreams(t *testing.T) {
	defer SetLogWriters(LogWriters{Ops: os.Stderr})

	var ops, diag bytes.Buffer
	SetLogWriters(LogWriters{Ops: &ops, Diag: &diag})

	Opsf("dropped frame %d", 7)
	Diagf("degraded shape: %s", "padded 2")
	Tracef("never written")

	if !strings.Contains(ops.String(), "dropped frame 7") {
		t.Errorf("ops stream = %q", ops.String())
	}
	if !strings.Contains(diag.String(), "padded 2") {
		t.Errorf("diag stream = %q", diag.String())
	}
	if TraceEnabled() {
		t.Error("trace stream should be disabled with a nil writer")
	}
}
