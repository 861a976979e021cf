package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressReporter_EmitAndSubscribe(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	ch := pr.Subscribe()
	want := ProgressEvent{Pass: "p1", Phase: PhaseWalk, Status: ProgressWorking, Done: 1, Total: 3}
	pr.Emit(want)

	select {
	case got := <-ch:
		assert.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for progress event")
	}
}

func TestProgressReporter_EmitWhenFull_DoesNotBlock(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			pr.Emit(ProgressEvent{Phase: PhaseWalk, Status: ProgressWorking})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked when the channel was full")
	}
}

func TestProgressReporter_NilIsNoop(t *testing.T) {
	var pr *ProgressReporter
	assert.NotPanics(t, func() { pr.Emit(ProgressEvent{}) })
}

func TestFormatProgress(t *testing.T) {
	tests := []struct {
		event ProgressEvent
		want  string
	}{
		{ProgressEvent{Phase: PhaseDiscover, Status: ProgressWorking}, "  ● discover..."},
		{ProgressEvent{Phase: PhaseWalk, Status: ProgressWorking, Done: 2, Total: 5}, "  ● walk 2/5"},
		{ProgressEvent{Phase: PhaseCycles, Status: ProgressComplete}, "  ✓ cycles complete"},
		{ProgressEvent{Phase: PhaseWalk, Status: ProgressComplete, Message: "3 files"}, "  ✓ walk complete: 3 files"},
		{ProgressEvent{Phase: PhaseWalk, Status: ProgressFailed, Message: "boom"}, "  ✗ walk failed: boom"},
		{ProgressEvent{Phase: Phase(9), Status: "?"}, "  ? unknown (unknown status)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatProgress(tt.event))
		})
	}
}
