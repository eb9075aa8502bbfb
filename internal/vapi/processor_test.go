package vapi

import (
	"context"
	"sync"
	"testing"

	"github.com/dialdeskhq/dialdesk-platform/internal/calls"
)

func newTestProcessor(store *fakeStore, notifier Notifier) *Processor {
	return NewProcessor(ProcessorConfig{Store: store, Notifier: notifier})
}

func TestProcessEndOfCallReportCreatesCall(t *testing.T) {
	agent := testAgent()
	store := newFakeStore(agent)
	notifier := &recordingNotifier{}
	p := newTestProcessor(store, notifier)

	raw := `{"message":{"type":"end-of-call-report",
		"call":{"id":"abc123","assistantId":"` + agent.VapiAssistantID + `",
			"customer":{"number":"+15550001"},"phoneNumber":{"number":"+15559999"}},
		"durationSeconds":61.2,"cost":0.42,"endedReason":"customer-ended-call",
		"recordingUrl":"https://r/abc.wav"}}`
	p.Process(context.Background(), []byte(raw))

	call := store.singleCall()
	if call == nil {
		t.Fatalf("expected exactly one call record, have %d", store.callCount())
	}
	if call.VapiCallID != "abc123" || call.AgentID != agent.ID {
		t.Fatalf("created record wrong: %+v", call)
	}
	if call.DurationSeconds != 62 {
		t.Fatalf("duration = %d, want 62 (rounded up)", call.DurationSeconds)
	}
	if call.Cost != 0.42 || call.RecordingURL != "https://r/abc.wav" {
		t.Fatalf("metrics lost on create: %+v", call)
	}
	if call.FromNumber != "+15550001" || call.ToNumber != "+15559999" {
		t.Fatalf("inbound numbers wrong: from=%q to=%q", call.FromNumber, call.ToNumber)
	}

	entry := store.singleLog()
	if entry == nil {
		t.Fatalf("expected exactly one audit entry")
	}
	if entry.Type != string(KindEndOfCallReport) || !entry.Processed || entry.Error != "" {
		t.Fatalf("audit entry wrong: %+v", entry)
	}

	n := notifier.last()
	if n == nil || n.userID != agent.UserID.String() || n.event != "calls:updated" {
		t.Fatalf("tenant notification wrong: %+v", n)
	}
}

func TestProcessStatusThenReportConvergesToOneRecord(t *testing.T) {
	agent := testAgent()
	store := newFakeStore(agent)
	notifier := &recordingNotifier{}
	p := newTestProcessor(store, notifier)

	statusRaw := `{"message":{"type":"status-update","status":"in-progress",
		"call":{"id":"abc123","assistantId":"` + agent.VapiAssistantID + `"}}}`
	reportRaw := `{"message":{"type":"end-of-call-report",
		"call":{"id":"abc123","assistantId":"` + agent.VapiAssistantID + `"},
		"durationSeconds":61.2,"cost":0.42,"recordingUrl":"https://r/abc.wav"}}`

	p.Process(context.Background(), []byte(statusRaw))
	p.Process(context.Background(), []byte(reportRaw))

	call := store.singleCall()
	if call == nil {
		t.Fatalf("events for one provider call must converge, have %d records", store.callCount())
	}
	if call.Outcome != "ended" || call.DurationSeconds != 62 || call.Cost != 0.42 {
		t.Fatalf("merged record wrong: %+v", call)
	}
	if call.RecordingURL != "https://r/abc.wav" {
		t.Fatalf("recording url missing after merge: %+v", call)
	}
	if notifier.count() != 2 {
		t.Fatalf("expected create + update notifications, got %d", notifier.count())
	}
}

func TestProcessReplayedReportIsUnchanged(t *testing.T) {
	agent := testAgent()
	store := newFakeStore(agent)
	notifier := &recordingNotifier{}
	p := newTestProcessor(store, notifier)

	raw := `{"message":{"type":"end-of-call-report",
		"call":{"id":"abc123","assistantId":"` + agent.VapiAssistantID + `"},
		"durationSeconds":30,"cost":0.2}}`
	p.Process(context.Background(), []byte(raw))
	before := store.singleCall()
	p.Process(context.Background(), []byte(raw))

	after := store.singleCall()
	if after == nil {
		t.Fatalf("replay must not create a second record, have %d", store.callCount())
	}
	if after.DurationSeconds != before.DurationSeconds || after.Cost != before.Cost {
		t.Fatalf("replay changed metrics: before=%+v after=%+v", before, after)
	}
	if notifier.count() != 1 {
		t.Fatalf("unchanged replay must not notify, got %d notifications", notifier.count())
	}
}

func TestProcessLateWeakerReportCannotShrinkMetrics(t *testing.T) {
	agent := testAgent()
	store := newFakeStore(agent)
	p := newTestProcessor(store, &recordingNotifier{})

	full := `{"message":{"type":"end-of-call-report",
		"call":{"id":"abc123","assistantId":"` + agent.VapiAssistantID + `"},
		"durationSeconds":120,"cost":1.5,"recordingUrl":"https://r/full.wav"}}`
	weak := `{"message":{"type":"end-of-call-report",
		"call":{"id":"abc123","assistantId":"` + agent.VapiAssistantID + `"},
		"durationSeconds":60,"cost":0.5,"recordingUrl":"https://r/weak.wav"}}`
	p.Process(context.Background(), []byte(full))
	p.Process(context.Background(), []byte(weak))

	call := store.singleCall()
	if call == nil {
		t.Fatalf("expected one record, have %d", store.callCount())
	}
	if call.DurationSeconds != 120 || call.Cost != 1.5 {
		t.Fatalf("weaker report shrank metrics: %+v", call)
	}
	if call.RecordingURL != "https://r/full.wav" {
		t.Fatalf("recording url must be write-once: %+v", call)
	}
}

func TestProcessLinksExternalIDToRecentUnlinkedRecord(t *testing.T) {
	agent := testAgent()
	store := newFakeStore(agent)
	p := newTestProcessor(store, &recordingNotifier{})

	// One record without an external id, created moments ago.
	existing := store.addCall(calls.Call{AgentID: agent.ID, Direction: "inbound"})

	status := `{"message":{"type":"status-update","status":"in-progress",
		"call":{"id":"abc123","assistantId":"` + agent.VapiAssistantID + `"}}}`
	report := `{"message":{"type":"end-of-call-report",
		"call":{"id":"abc123","assistantId":"` + agent.VapiAssistantID + `"},
		"durationSeconds":42,"cost":0.07,"endedReason":"assistant-ended-call","status":"ended"}}`
	p.Process(context.Background(), []byte(status))
	p.Process(context.Background(), []byte(report))

	call := store.singleCall()
	if call == nil {
		t.Fatalf("both events must land on the pre-existing record, have %d", store.callCount())
	}
	if call.ID != existing.ID {
		t.Fatalf("events created a new record instead of linking %s", existing.ID)
	}
	if call.VapiCallID != "abc123" {
		t.Fatalf("external id not linked, got %q", call.VapiCallID)
	}
	if call.DurationSeconds != 42 || call.Cost != 0.07 {
		t.Fatalf("final metrics wrong: %+v", call)
	}
	if call.Outcome != "ended" || call.EndedReason != "assistant-ended-call" {
		t.Fatalf("final lifecycle fields wrong: %+v", call)
	}
}

func TestProcessUnknownPayloadIsLoggedAndIgnored(t *testing.T) {
	store := newFakeStore(testAgent())
	p := newTestProcessor(store, &recordingNotifier{})

	p.Process(context.Background(), []byte(`{"hello":"world"}`))

	if store.callCount() != 0 {
		t.Fatalf("unknown payload must not touch calls")
	}
	entry := store.singleLog()
	if entry == nil {
		t.Fatalf("even unknown payloads get an audit entry")
	}
	if entry.Type != string(KindUnknown) || !entry.Processed || entry.Error != "" {
		t.Fatalf("audit entry wrong: %+v", entry)
	}
}

func TestProcessUnknownAssistantRecordsErrorText(t *testing.T) {
	store := newFakeStore(testAgent())
	p := newTestProcessor(store, &recordingNotifier{})

	raw := `{"message":{"type":"status-update","status":"ringing",
		"call":{"id":"zzz","assistantId":"asst-nobody"}}}`
	p.Process(context.Background(), []byte(raw))

	if store.callCount() != 0 {
		t.Fatalf("unknown assistant must not create calls")
	}
	entry := store.singleLog()
	if entry == nil {
		t.Fatalf("expected an audit entry")
	}
	if !entry.Processed {
		t.Fatalf("unknown assistant is handled, not failed: %+v", entry)
	}
	if entry.Error == "" {
		t.Fatalf("audit entry should carry the diagnostic text")
	}
}

func TestProcessResolutionFailureMarksEntryUnprocessed(t *testing.T) {
	store := newFakeStore(testAgent())
	store.failListCalls = true
	alerts := &recordingAlerter{}
	p := NewProcessor(ProcessorConfig{Store: store, Alerts: alerts})

	raw := `{"message":{"type":"status-update","status":"ringing",
		"call":{"id":"zzz","assistantId":"asst-1"}}}`
	p.Process(context.Background(), []byte(raw))

	entry := store.singleLog()
	if entry == nil {
		t.Fatalf("expected an audit entry")
	}
	if entry.Processed || entry.Error == "" {
		t.Fatalf("failed processing must leave processed=false with an error: %+v", entry)
	}
	if alerts.count() != 1 {
		t.Fatalf("failure should feed the alerter, got %d", alerts.count())
	}
}

func TestProcessNeverPanicsOnGarbage(t *testing.T) {
	store := newFakeStore(testAgent())
	p := newTestProcessor(store, &recordingNotifier{})

	payloads := []string{"", "null", "[]", `"str"`, `{"message":null}`, "{"}
	for _, raw := range payloads {
		p.Process(context.Background(), []byte(raw))
	}
	if store.callCount() != 0 {
		t.Fatalf("garbage must not create call records")
	}
}

type recordingAlerter struct {
	mu       sync.Mutex
	failures int
}

func (a *recordingAlerter) RecordFailure(ctx context.Context, kind string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures++
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failures
}
