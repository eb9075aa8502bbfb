package vapi

import (
	"testing"
	"time"
)

func classifyFact(t *testing.T, raw string) Fact {
	t.Helper()
	ev := Classify([]byte(raw))
	if ev.Kind == KindUnknown {
		t.Fatalf("payload unexpectedly classified unknown: %s", raw)
	}
	return Extract(ev)
}

func TestExtractDurationLadder(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int
	}{
		{"explicit seconds", `{"type":"end-of-call-report","durationSeconds":61.2}`, 62},
		{"milliseconds", `{"type":"end-of-call-report","durationMs":61200}`, 62},
		{"minutes", `{"type":"end-of-call-report","durationMinutes":1.5}`, 90},
		{
			"timestamps",
			`{"type":"end-of-call-report","startedAt":"2026-08-25T10:00:00Z","endedAt":"2026-08-25T10:01:30.5Z"}`,
			91,
		},
		{
			"call timestamps",
			`{"type":"end-of-call-report","call":{"startedAt":"2026-08-25T10:00:00Z","endedAt":"2026-08-25T10:00:45Z"}}`,
			45,
		},
		{
			"last transcript marker",
			`{"type":"end-of-call-report","messages":[{"secondsFromStart":1.1},{"secondsFromStart":33.4}]}`,
			34,
		},
		{
			"artifact markers",
			`{"type":"end-of-call-report","artifact":{"messages":[{"secondsFromStart":12.0}]}}`,
			12,
		},
		{"nothing usable", `{"type":"end-of-call-report"}`, 0},
		{
			"seconds beat timestamps",
			`{"type":"end-of-call-report","durationSeconds":10,"startedAt":"2026-08-25T10:00:00Z","endedAt":"2026-08-25T11:00:00Z"}`,
			10,
		},
		{
			"ended before started ignored",
			`{"type":"end-of-call-report","startedAt":"2026-08-25T11:00:00Z","endedAt":"2026-08-25T10:00:00Z"}`,
			0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyFact(t, tc.raw).DurationSeconds; got != tc.want {
				t.Fatalf("duration = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestExtractCostLadder(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want float64
	}{
		{"scalar", `{"type":"end-of-call-report","cost":0.42}`, 0.42},
		{"breakdown total", `{"type":"end-of-call-report","costBreakdown":{"total":0.31}}`, 0.31},
		{
			"itemized sum",
			`{"type":"end-of-call-report","costs":[{"type":"transport","cost":0.25},{"type":"model","cost":0.5}]}`,
			0.75,
		},
		{
			"scalar beats breakdown",
			`{"type":"end-of-call-report","cost":0.5,"costBreakdown":{"total":9.9}}`,
			0.5,
		},
		{"absent", `{"type":"end-of-call-report","durationSeconds":5}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyFact(t, tc.raw).Cost; got != tc.want {
				t.Fatalf("cost = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExtractInboundNumberRoles(t *testing.T) {
	raw := `{"type":"status-update","status":"in-progress",
		"call":{"id":"c1","assistantId":"asst-1","customer":{"number":"+15550001"},"phoneNumber":{"number":"+15559999"}}}`
	fact := classifyFact(t, raw)
	if fact.Direction != "inbound" {
		t.Fatalf("direction = %q, want inbound", fact.Direction)
	}
	if fact.FromNumber != "+15550001" || fact.ToNumber != "+15559999" {
		t.Fatalf("inbound mapping wrong: from=%q to=%q", fact.FromNumber, fact.ToNumber)
	}
	if fact.CustomerNumber() != "+15550001" {
		t.Fatalf("customer number = %q, want caller", fact.CustomerNumber())
	}
}

func TestExtractOutboundNumberRoles(t *testing.T) {
	raw := `{"type":"status-update","status":"in-progress",
		"call":{"id":"c1","type":"outboundPhoneCall","customer":{"number":"+15550001"},"phoneNumber":{"number":"+15559999"}}}`
	fact := classifyFact(t, raw)
	if fact.Direction != "outbound" {
		t.Fatalf("direction = %q, want outbound", fact.Direction)
	}
	if fact.FromNumber != "+15559999" || fact.ToNumber != "+15550001" {
		t.Fatalf("outbound mapping wrong: from=%q to=%q", fact.FromNumber, fact.ToNumber)
	}
	if fact.CustomerNumber() != "+15550001" {
		t.Fatalf("customer number = %q, want callee", fact.CustomerNumber())
	}
}

func TestExtractIdentityFallsBackToCallObject(t *testing.T) {
	raw := `{"type":"end-of-call-report","call":{"id":"call-9","assistantId":"asst-7"}}`
	fact := classifyFact(t, raw)
	if fact.CallID != "call-9" {
		t.Fatalf("call id = %q, want call-9", fact.CallID)
	}
	if fact.AssistantID != "asst-7" {
		t.Fatalf("assistant id = %q, want asst-7", fact.AssistantID)
	}
}

func TestExtractReportImpliesEnded(t *testing.T) {
	fact := classifyFact(t, `{"type":"end-of-call-report","cost":0.1}`)
	if fact.Status != "ended" {
		t.Fatalf("status = %q, want ended", fact.Status)
	}
}

func TestExtractStatusUpdateKeepsExplicitStatus(t *testing.T) {
	fact := classifyFact(t, `{"type":"status-update","status":"ringing"}`)
	if fact.Status != "ringing" {
		t.Fatalf("status = %q, want ringing", fact.Status)
	}
}

func TestExtractRecordingURLFallbacks(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"top level", `{"type":"end-of-call-report","recordingUrl":"https://r/a.wav"}`, "https://r/a.wav"},
		{"stereo", `{"type":"end-of-call-report","stereoRecordingUrl":"https://r/s.wav"}`, "https://r/s.wav"},
		{"artifact", `{"type":"end-of-call-report","artifact":{"recordingUrl":"https://r/art.wav"}}`, "https://r/art.wav"},
		{
			"artifact stereo",
			`{"type":"end-of-call-report","artifact":{"stereoRecordingUrl":"https://r/art-s.wav"}}`,
			"https://r/art-s.wav",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyFact(t, tc.raw).RecordingURL; got != tc.want {
				t.Fatalf("recording url = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractStartedAtFallsBackToCall(t *testing.T) {
	raw := `{"type":"status-update","status":"in-progress","call":{"startedAt":"2026-08-25T10:00:00Z"}}`
	fact := classifyFact(t, raw)
	want := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	if fact.StartedAt == nil || !fact.StartedAt.Equal(want) {
		t.Fatalf("started at = %v, want %v", fact.StartedAt, want)
	}
}

func TestCeilSecondsNeverRoundsDown(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{0, 0}, {-3, 0}, {0.001, 1}, {1.0, 1}, {59.01, 60}, {60.0, 60},
	}
	for _, tc := range cases {
		if got := ceilSeconds(tc.in); got != tc.want {
			t.Fatalf("ceilSeconds(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
