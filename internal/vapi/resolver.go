package vapi

import (
	"context"
	"fmt"
	"time"

	"github.com/dialdeskhq/dialdesk-platform/internal/agents"
	"github.com/dialdeskhq/dialdesk-platform/internal/calls"
	"github.com/dialdeskhq/dialdesk-platform/pkg/logging"
)

// Matching windows for the recency tiers.
const (
	numberPairWindow     = 60 * time.Minute
	recentUnlinkedWindow = 5 * time.Minute
)

// Resolution actions.
const (
	ActionMatched = "matched"
	ActionCreated = "created"
	ActionDropped = "dropped"
)

// Resolution is the outcome of mapping a fact onto local storage.
type Resolution struct {
	Action string
	// Tier names which matching tier produced the call: "external-id",
	// "number-pair", "recent-unlinked", or "" for created/dropped.
	Tier string
	// Call is the matched or created record; nil when dropped.
	Call *calls.Call
	// Agent owns the call.
	Agent *agents.Agent
	// DuplicatesRemoved counts duplicate records deleted during tier 1.
	DuplicatesRemoved int
}

// Resolver maps a normalized fact to exactly one local call record, or
// decides to create one, using tiered matching. It also heals duplicate
// records created by racing webhook deliveries.
type Resolver struct {
	store  Store
	logger *logging.Logger
	now    func() time.Time
}

// NewResolver creates a resolver over the given store.
func NewResolver(store Store, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{store: store, logger: logger, now: time.Now}
}

// Resolve applies the matching tiers in strict order; the first tier that
// yields a candidate wins.
func (r *Resolver) Resolve(ctx context.Context, fact Fact) (*Resolution, error) {
	agent, err := r.lookupAgent(ctx, fact.AssistantID)
	if err != nil {
		return nil, err
	}

	all, err := r.store.GetAllCalls(ctx)
	if err != nil {
		return nil, fmt.Errorf("vapi: list calls: %w", err)
	}

	// Tier 1: external call id.
	if fact.CallID != "" {
		var matches []calls.Call
		for _, c := range all {
			if c.VapiCallID == fact.CallID {
				matches = append(matches, c)
			}
		}
		if len(matches) > 0 {
			keep, removed, err := r.reconcileDuplicates(ctx, fact.CallID, matches)
			if err != nil {
				return nil, err
			}
			return &Resolution{
				Action:            ActionMatched,
				Tier:              "external-id",
				Call:              keep,
				Agent:             agent,
				DuplicatesRemoved: removed,
			}, nil
		}
	}

	// Tier 2: number pair within the recency window.
	if fact.FromNumber != "" && fact.ToNumber != "" {
		if match := r.matchByNumberPair(agent, all, fact); match != nil {
			return &Resolution{Action: ActionMatched, Tier: "number-pair", Call: match, Agent: agent}, nil
		}
	}

	// Tier 3: recent record without an external id, when the fact carries
	// no usable caller number to match on.
	if fact.CustomerNumber() == "" {
		if match := r.matchRecentUnlinked(agent, all); match != nil {
			return &Resolution{Action: ActionMatched, Tier: "recent-unlinked", Call: match, Agent: agent}, nil
		}
	}

	// Tier 4: create, but only for facts that carry an external id. A fact
	// with neither an id nor a match could never be correlated later, so it
	// is dropped instead of becoming a permanent orphan.
	if fact.CallID == "" {
		r.logger.Warn("dropping uncorrelatable webhook event",
			"assistant_id", fact.AssistantID,
			"status", fact.Status,
		)
		return &Resolution{Action: ActionDropped, Agent: agent}, nil
	}

	created, err := r.store.CreateCall(ctx, calls.NewCall{
		AgentID:         agent.ID,
		VapiCallID:      fact.CallID,
		Direction:       fact.Direction,
		FromNumber:      fact.FromNumber,
		ToNumber:        fact.ToNumber,
		Outcome:         fact.Status,
		EndedReason:     fact.EndedReason,
		DurationSeconds: fact.DurationSeconds,
		Cost:            fact.Cost,
		RecordingURL:    fact.RecordingURL,
		StartedAt:       fact.StartedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("vapi: create call: %w", err)
	}
	return &Resolution{Action: ActionCreated, Call: created, Agent: agent}, nil
}

func (r *Resolver) lookupAgent(ctx context.Context, assistantID string) (*agents.Agent, error) {
	list, err := r.store.GetAllAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("vapi: list agents: %w", err)
	}
	for i := range list {
		if assistantID != "" && list[i].VapiAssistantID == assistantID {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrAgentNotFound, assistantID)
}

// reconcileDuplicates keeps the richest of the records sharing one external
// call id and permanently deletes the rest.
func (r *Resolver) reconcileDuplicates(ctx context.Context, vapiCallID string, matches []calls.Call) (*calls.Call, int, error) {
	keep := matches[0]
	for _, c := range matches[1:] {
		if richer(c, keep) {
			keep = c
		}
	}
	removed := 0
	for _, c := range matches {
		if c.ID == keep.ID {
			continue
		}
		if _, err := r.store.DeleteCall(ctx, c.ID); err != nil {
			return nil, removed, fmt.Errorf("vapi: delete duplicate call %s: %w", c.ID, err)
		}
		removed++
	}
	if removed > 0 {
		r.logger.Info("reconciled duplicate call records",
			"vapi_call_id", vapiCallID,
			"kept", keep.ID,
			"removed", removed,
		)
	}
	return &keep, removed, nil
}

// richer orders duplicate records by informativeness: a recording URL beats
// everything, then longer duration, higher cost, most recent start.
func richer(a, b calls.Call) bool {
	aRec, bRec := a.RecordingURL != "", b.RecordingURL != ""
	if aRec != bRec {
		return aRec
	}
	if a.DurationSeconds != b.DurationSeconds {
		return a.DurationSeconds > b.DurationSeconds
	}
	if a.Cost != b.Cost {
		return a.Cost > b.Cost
	}
	aStart, bStart := startOrZero(a), startOrZero(b)
	return aStart.After(bStart)
}

func startOrZero(c calls.Call) time.Time {
	if c.StartedAt != nil {
		return *c.StartedAt
	}
	return time.Time{}
}

func (r *Resolver) matchByNumberPair(agent *agents.Agent, all []calls.Call, fact Fact) *calls.Call {
	cutoff := r.now().Add(-numberPairWindow)
	var best *calls.Call
	for i := range all {
		c := &all[i]
		if c.AgentID != agent.ID || c.StartedAt == nil || c.StartedAt.Before(cutoff) {
			continue
		}
		samePair := (c.FromNumber == fact.FromNumber && c.ToNumber == fact.ToNumber) ||
			(c.FromNumber == fact.ToNumber && c.ToNumber == fact.FromNumber)
		if !samePair {
			continue
		}
		if best == nil || c.StartedAt.After(*best.StartedAt) {
			best = c
		}
	}
	return best
}

func (r *Resolver) matchRecentUnlinked(agent *agents.Agent, all []calls.Call) *calls.Call {
	cutoff := r.now().Add(-recentUnlinkedWindow)
	var best *calls.Call
	for i := range all {
		c := &all[i]
		if c.AgentID != agent.ID || c.VapiCallID != "" || c.CreatedAt.Before(cutoff) {
			continue
		}
		if best == nil || c.CreatedAt.After(best.CreatedAt) {
			best = c
		}
	}
	return best
}
