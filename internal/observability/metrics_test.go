package observability

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsConcurrentRecording(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordRequest("/submit-ticket", "POST", 200, time.Millisecond)
			m.RecordSubmission(OutcomeCompleted)
		}()
	}
	wg.Wait()
	m.RecordError("/submit-ticket", "POST", "PERSISTENCE_ERROR")

	snap := m.Snapshot()
	if got := snap.Requests["/submit-ticket|POST|200"]; got != 50 {
		t.Fatalf("requests = %d, want 50", got)
	}
	if got := snap.Submissions[OutcomeCompleted]; got != 50 {
		t.Fatalf("completed = %d, want 50", got)
	}
	if got := snap.Errors["/submit-ticket|POST|PERSISTENCE_ERROR"]; got != 1 {
		t.Fatalf("errors = %d, want 1", got)
	}

	snap.Submissions[OutcomeCompleted] = 0
	if m.Snapshot().Submissions[OutcomeCompleted] != 50 {
		t.Fatalf("Snapshot() must return a copy")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordError("/", "GET", "X")
	m.RecordSubmission(OutcomeNotifyFailed)
	if snap := m.Snapshot(); snap.Requests != nil {
		t.Fatalf("nil Snapshot() = %+v", snap)
	}
}
