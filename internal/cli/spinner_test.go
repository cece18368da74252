package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestSpinnerBasic(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(context.Background(), &buf, "Relocating demo.whl")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(buf.String(), "Relocating demo.whl") {
		t.Errorf("spinner output %q should contain the message", buf.String())
	}
	if s.Cancelled() {
		t.Error("Stop should not count as cancellation")
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinner(ctx, &bytes.Buffer{}, "Relocating")
	s.Start()
	cancel()

	// Give goroutine time to notice cancellation
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerWithTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newSpinner(ctx, &bytes.Buffer{}, "Relocating")
	s.Start()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context timeout")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner(context.Background(), &bytes.Buffer{}, "Relocating")
	s.Start()

	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s := newSpinner(context.Background(), &bytes.Buffer{}, "Relocating")
	s.Stop()
}

func TestSpinnerStopMessages(t *testing.T) {
	tests := []struct {
		name string
		stop func(*Spinner)
		want string
	}{
		{"success", func(s *Spinner) { s.StopWithSuccess("Relocated demo.whl") }, iconSuccess + " Relocated demo.whl"},
		{"error", func(s *Spinner) { s.StopWithError("Failed demo.whl") }, iconError + " Failed demo.whl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := newSpinner(context.Background(), &buf, "Relocating")
			s.Start()
			tt.stop(s)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q should contain %q", buf.String(), tt.want)
			}
		})
	}
}
