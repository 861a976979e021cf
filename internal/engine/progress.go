package engine

import "fmt"

// Phase is a step of a build pass.
type Phase int

const (
	PhaseDiscover Phase = iota
	PhaseWalk
	PhaseCycles
)

func (p Phase) String() string {
	names := [...]string{"discover", "walk", "cycles"}
	if int(p) < len(names) {
		return names[p]
	}
	return "unknown"
}

// ProgressStatus is the state of a phase.
type ProgressStatus string

const (
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// ProgressEvent reports the advance of one build pass.
type ProgressEvent struct {
	Pass    string
	Phase   Phase
	Status  ProgressStatus
	Done    int
	Total   int
	Message string
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	if pr == nil {
		return
	}
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressWorking:
		if event.Total > 0 {
			return fmt.Sprintf("  ● %s %d/%d", event.Phase, event.Done, event.Total)
		}
		return fmt.Sprintf("  ● %s...", event.Phase)
	case ProgressComplete:
		if event.Message != "" {
			return fmt.Sprintf("  ✓ %s complete: %s", event.Phase, event.Message)
		}
		return fmt.Sprintf("  ✓ %s complete", event.Phase)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Phase, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Phase)
	}
}
