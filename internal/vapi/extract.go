package vapi

import (
	"math"
	"strings"
	"time"
)

// Fact is the schema-agnostic tuple of call attributes pulled out of one
// classified event. Every field is optional; extraction degrades gracefully
// when a generation omits something.
type Fact struct {
	AssistantID     string
	CallID          string
	Direction       string
	FromNumber      string
	ToNumber        string
	StartedAt       *time.Time
	DurationSeconds int
	Cost            float64
	Status          string
	EndedReason     string
	RecordingURL    string
}

// CustomerNumber returns the caller-side number: the origin for inbound
// calls, the destination for outbound ones.
func (f Fact) CustomerNumber() string {
	if f.Direction == "outbound" {
		return f.ToNumber
	}
	return f.FromNumber
}

// Extract normalizes a classified event into a Fact.
//
// Phone number roles depend on direction: on an inbound call the assistant's
// number is the callee, on an outbound call it is the caller. Durations
// always round up to whole seconds.
func Extract(ev Event) Fact {
	var fact Fact
	body := ev.Body
	if body == nil {
		return fact
	}
	call := body.Call

	fact.AssistantID = firstNonEmpty(body.AssistantID, callField(call, func(c *callPayload) string { return c.AssistantID }))
	fact.CallID = firstNonEmpty(callField(call, func(c *callPayload) string { return c.ID }), body.CallID)

	fact.Direction = "inbound"
	if call != nil && strings.EqualFold(call.Type, "outboundPhoneCall") {
		fact.Direction = "outbound"
	}

	customer := firstNonEmpty(body.Customer.Number, callField(call, func(c *callPayload) string { return c.Customer.Number }))
	assistant := firstNonEmpty(body.PhoneNumber.Number, callField(call, func(c *callPayload) string { return c.PhoneNumber.Number }))
	if fact.Direction == "outbound" {
		fact.FromNumber = assistant
		fact.ToNumber = customer
	} else {
		fact.FromNumber = customer
		fact.ToNumber = assistant
	}

	fact.StartedAt = body.StartedAt
	if fact.StartedAt == nil && call != nil {
		fact.StartedAt = call.StartedAt
	}

	fact.DurationSeconds = extractDuration(body)
	fact.Cost = extractCost(body)

	fact.Status = strings.TrimSpace(body.Status)
	if fact.Status == "" && call != nil {
		fact.Status = strings.TrimSpace(call.Status)
	}
	if fact.Status == "" && ev.Kind == KindEndOfCallReport {
		// An end-of-call report implies the call is over even when the
		// payload omits an explicit status.
		fact.Status = "ended"
	}
	fact.EndedReason = strings.TrimSpace(body.EndedReason)

	fact.RecordingURL = firstNonEmpty(body.RecordingURL, body.StereoRecordingURL)
	if fact.RecordingURL == "" && body.Artifact != nil {
		fact.RecordingURL = firstNonEmpty(body.Artifact.RecordingURL, body.Artifact.StereoRecordingURL)
	}

	return fact
}

// extractDuration resolves duration through the fallback ladder: explicit
// seconds, milliseconds, minutes, end minus start, last transcript marker.
func extractDuration(body *eventBody) int {
	if body.DurationSeconds != nil && *body.DurationSeconds > 0 {
		return ceilSeconds(*body.DurationSeconds)
	}
	if body.DurationMs != nil && *body.DurationMs > 0 {
		return ceilSeconds(*body.DurationMs / 1000)
	}
	if body.DurationMinutes != nil && *body.DurationMinutes > 0 {
		return ceilSeconds(*body.DurationMinutes * 60)
	}

	started, ended := body.StartedAt, body.EndedAt
	if (started == nil || ended == nil) && body.Call != nil {
		if started == nil {
			started = body.Call.StartedAt
		}
		if ended == nil {
			ended = body.Call.EndedAt
		}
	}
	if started != nil && ended != nil && ended.After(*started) {
		return ceilSeconds(ended.Sub(*started).Seconds())
	}

	markers := body.Messages
	if len(markers) == 0 && body.Artifact != nil {
		markers = body.Artifact.Messages
	}
	if n := len(markers); n > 0 {
		last := markers[n-1]
		if last.SecondsFromStart != nil && *last.SecondsFromStart > 0 {
			return ceilSeconds(*last.SecondsFromStart)
		}
	}
	return 0
}

// extractCost resolves cost: explicit scalar, breakdown total, then the sum
// of itemized entries.
func extractCost(body *eventBody) float64 {
	if body.Cost != nil && *body.Cost > 0 {
		return *body.Cost
	}
	if body.CostBreakdown != nil && body.CostBreakdown.Total != nil && *body.CostBreakdown.Total > 0 {
		return *body.CostBreakdown.Total
	}
	var sum float64
	for _, item := range body.Costs {
		sum += item.Cost
	}
	if sum > 0 {
		return sum
	}
	return 0
}

// ceilSeconds rounds up to the nearest whole second; never down, so
// reported durations are never under-counted.
func ceilSeconds(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Ceil(seconds))
}

func callField(call *callPayload, get func(*callPayload) string) string {
	if call == nil {
		return ""
	}
	return strings.TrimSpace(get(call))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
