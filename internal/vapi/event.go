package vapi

import (
	"encoding/json"
	"strings"
	"time"
)

// EventKind is the semantic kind of an inbound Vapi webhook event. The
// string value doubles as the audit log `type`.
type EventKind string

const (
	KindEndOfCallReport EventKind = "end-of-call-report"
	KindStatusUpdate    EventKind = "status-update"
	KindFunctionCall    EventKind = "function-call"
	KindUnknown         EventKind = "unknown"
)

func (k EventKind) String() string { return string(k) }

// phoneParty is a party on the call carrying an E.164 number.
type phoneParty struct {
	Number string `json:"number"`
}

// callPayload is the call object embedded in most event shapes.
type callPayload struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	AssistantID   string     `json:"assistantId"`
	Status        string     `json:"status"`
	StartedAt     *time.Time `json:"startedAt"`
	EndedAt       *time.Time `json:"endedAt"`
	Customer      phoneParty `json:"customer"`
	PhoneNumber   phoneParty `json:"phoneNumber"`
	PhoneNumberID string     `json:"phoneNumberId"`
}

type costBreakdown struct {
	Total *float64 `json:"total"`
}

type costItem struct {
	Type string  `json:"type"`
	Cost float64 `json:"cost"`
}

type artifact struct {
	RecordingURL       string          `json:"recordingUrl"`
	StereoRecordingURL string          `json:"stereoRecordingUrl"`
	Messages           []messageMarker `json:"messages"`
}

// messageMarker is a transcript/message timing marker; the last one bounds
// the call duration when no explicit duration field is present.
type messageMarker struct {
	Role             string   `json:"role"`
	SecondsFromStart *float64 `json:"secondsFromStart"`
	Duration         *float64 `json:"duration"`
}

type functionCall struct {
	Name string `json:"name"`
}

type toolCallEntry struct {
	Function functionCall `json:"function"`
}

// eventBody is the field set shared by both schema generations. The legacy
// generation carries it at the top level; the newer generation nests it
// under a "message" envelope.
type eventBody struct {
	Type               string          `json:"type"`
	Status             string          `json:"status"`
	EndedReason        string          `json:"endedReason"`
	AssistantID        string          `json:"assistantId"`
	CallID             string          `json:"callId"`
	Call               *callPayload    `json:"call"`
	Customer           phoneParty      `json:"customer"`
	PhoneNumber        phoneParty      `json:"phoneNumber"`
	StartedAt          *time.Time      `json:"startedAt"`
	EndedAt            *time.Time      `json:"endedAt"`
	DurationSeconds    *float64        `json:"durationSeconds"`
	DurationMs         *float64        `json:"durationMs"`
	DurationMinutes    *float64        `json:"durationMinutes"`
	Cost               *float64        `json:"cost"`
	CostBreakdown      *costBreakdown  `json:"costBreakdown"`
	Costs              []costItem      `json:"costs"`
	RecordingURL       string          `json:"recordingUrl"`
	StereoRecordingURL string          `json:"stereoRecordingUrl"`
	Artifact           *artifact       `json:"artifact"`
	Messages           []messageMarker `json:"messages"`
	FunctionCall       *functionCall   `json:"functionCall"`
	ToolCalls          []toolCallEntry `json:"toolCalls"`
}

// envelope covers both generations in one decode: legacy events populate the
// embedded body, server-message events populate Message.
type envelope struct {
	eventBody
	Message *eventBody `json:"message"`
}

// Event is a classified webhook event: the kind plus the schema-generation
// body the extractor should read.
type Event struct {
	Kind EventKind
	Body *eventBody
}

// Classify inspects a raw payload and determines its semantic kind. It is a
// pure function: malformed or ambiguous payloads classify as KindUnknown,
// never as an error, so the HTTP layer can acknowledge everything.
func Classify(raw []byte) Event {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{Kind: KindUnknown}
	}

	// Explicit discriminator, top level first, then the nested envelope.
	if kind, ok := kindFromLiteral(env.Type); ok {
		return Event{Kind: kind, Body: &env.eventBody}
	}
	if env.Message != nil {
		if kind, ok := kindFromLiteral(env.Message.Type); ok {
			return Event{Kind: kind, Body: env.Message}
		}
	}

	// Structural inference over whichever body carries content.
	body := &env.eventBody
	if env.Message != nil && !structurallyEmpty(env.Message) {
		body = env.Message
	}
	if kind, ok := kindFromStructure(body); ok {
		return Event{Kind: kind, Body: body}
	}
	return Event{Kind: KindUnknown}
}

func kindFromLiteral(t string) (EventKind, bool) {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "end-of-call-report", "end_of_call_report":
		return KindEndOfCallReport, true
	case "status-update", "status_update":
		return KindStatusUpdate, true
	case "function-call", "function_call", "tool-calls", "tool_calls":
		return KindFunctionCall, true
	}
	return KindUnknown, false
}

func kindFromStructure(body *eventBody) (EventKind, bool) {
	if body.Cost != nil || body.CostBreakdown != nil || len(body.Costs) > 0 ||
		body.DurationSeconds != nil || body.DurationMs != nil || body.DurationMinutes != nil {
		return KindEndOfCallReport, true
	}
	if body.FunctionCall != nil || len(body.ToolCalls) > 0 {
		return KindFunctionCall, true
	}
	if strings.TrimSpace(body.Status) != "" {
		return KindStatusUpdate, true
	}
	return KindUnknown, false
}

func structurallyEmpty(body *eventBody) bool {
	return body.Status == "" && body.Cost == nil && body.CostBreakdown == nil &&
		len(body.Costs) == 0 && body.DurationSeconds == nil && body.DurationMs == nil &&
		body.DurationMinutes == nil && body.FunctionCall == nil && len(body.ToolCalls) == 0 &&
		body.Call == nil
}
