package vapi

import (
	"strings"

	"github.com/dialdeskhq/dialdesk-platform/internal/calls"
)

// terminalStatuses are the status values after which call metrics are
// expected to be final.
var terminalStatuses = map[string]struct{}{
	"completed": {},
	"ended":     {},
	"failed":    {},
	"error":     {},
	"voicemail": {},
}

// IsTerminalStatus reports whether a status value marks the call as
// finished. Covers the fixed set plus the provider's "-ended-call" reason
// variants (assistant-ended-call, customer-ended-call, ...).
func IsTerminalStatus(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	if _, ok := terminalStatuses[s]; ok {
		return true
	}
	return strings.HasSuffix(s, "-ended-call") || strings.HasSuffix(s, "call-ended")
}

// BuildUpdate computes the field set a fact is allowed to write onto a
// target record. A field is included only when the fact is more informative
// than what the target already holds:
//
//   - duration and cost only grow, and a zero never replaces a value
//   - the recording URL is set at most once, from empty to non-empty
//   - the external call id is set only if the target has none
//   - status and ended reason follow the call lifecycle freely
//   - numbers and start time are back-filled only where the target is blank
//
// Metrics are additionally gated behind the call being finished, or the
// fact itself carrying a non-zero value, so a mid-call heartbeat cannot
// disturb fields it knows nothing about.
func BuildUpdate(target *calls.Call, fact Fact) calls.Update {
	var upd calls.Update

	if target.VapiCallID == "" && fact.CallID != "" {
		upd.VapiCallID = &fact.CallID
	}

	if fact.Status != "" && fact.Status != target.Outcome {
		status := fact.Status
		upd.Outcome = &status
	}

	metricsFinal := IsTerminalStatus(fact.Status) || fact.DurationSeconds > 0 ||
		fact.Cost > 0 || fact.EndedReason != ""

	if metricsFinal {
		if fact.DurationSeconds > 0 && fact.DurationSeconds > target.DurationSeconds {
			d := fact.DurationSeconds
			upd.DurationSeconds = &d
		}
		if fact.Cost > 0 && fact.Cost > target.Cost {
			c := fact.Cost
			upd.Cost = &c
		}
		if fact.EndedReason != "" && fact.EndedReason != target.EndedReason {
			reason := fact.EndedReason
			upd.EndedReason = &reason
		}
	}

	if target.RecordingURL == "" && fact.RecordingURL != "" {
		url := fact.RecordingURL
		upd.RecordingURL = &url
	}

	if target.FromNumber == "" && fact.FromNumber != "" {
		from := fact.FromNumber
		upd.FromNumber = &from
	}
	if target.ToNumber == "" && fact.ToNumber != "" {
		to := fact.ToNumber
		upd.ToNumber = &to
	}
	if target.StartedAt == nil && fact.StartedAt != nil {
		started := *fact.StartedAt
		upd.StartedAt = &started
	}

	return upd
}
