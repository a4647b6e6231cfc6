package debug

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func withDebug(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := enabled
	prevLogger := logger
	var buf bytes.Buffer
	SetEnabled(true)
	SetOutput(&buf)
	t.Cleanup(func() {
		enabled = prev
		logger = prevLogger
	})
	return &buf
}

func TestLogWritesWhenEnabled(t *testing.T) {
	buf := withDebug(t)

	Log("toggled section %d", 3)
	LogTiming("flatten", 2*time.Millisecond)
	LogIf(false, "never")

	out := buf.String()
	if !strings.Contains(out, "[FOLD_DEBUG] ") {
		t.Errorf("missing prefix in %q", out)
	}
	if !strings.Contains(out, "toggled section 3") {
		t.Errorf("missing message in %q", out)
	}
	if !strings.Contains(out, "flatten took 2ms") {
		t.Errorf("missing timing in %q", out)
	}
	if strings.Contains(out, "never") {
		t.Errorf("LogIf(false) wrote output: %q", out)
	}
}

func TestDisabledIsSilent(t *testing.T) {
	buf := withDebug(t)
	SetEnabled(false)

	Log("hidden")
	Dump("x", 1)
	LogEnterExit("noop")()
	Assert(false, "ignored while disabled")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestAssertPanics(t *testing.T) {
	withDebug(t)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	AssertNoError(errors.New("boom"), "replay")
}
