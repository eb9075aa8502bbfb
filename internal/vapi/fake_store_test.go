package vapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dialdeskhq/dialdesk-platform/internal/agents"
	"github.com/dialdeskhq/dialdesk-platform/internal/calls"
	"github.com/dialdeskhq/dialdesk-platform/internal/webhooklog"
)

// fakeStore is an in-memory Store for resolver and processor tests.
type fakeStore struct {
	mu     sync.Mutex
	agents []agents.Agent
	calls  map[uuid.UUID]*calls.Call
	logs   map[uuid.UUID]*webhooklog.Entry

	failListCalls bool
	failUpdate    bool
}

func newFakeStore(agentList ...agents.Agent) *fakeStore {
	return &fakeStore{
		agents: agentList,
		calls:  make(map[uuid.UUID]*calls.Call),
		logs:   make(map[uuid.UUID]*webhooklog.Entry),
	}
}

func (s *fakeStore) addCall(c calls.Call) *calls.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	stored := c
	s.calls[stored.ID] = &stored
	return &stored
}

func (s *fakeStore) GetAllAgents(ctx context.Context) ([]agents.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]agents.Agent(nil), s.agents...), nil
}

func (s *fakeStore) GetAllCalls(ctx context.Context) ([]calls.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failListCalls {
		return nil, fmt.Errorf("fake: list calls failed")
	}
	out := make([]calls.Call, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, *c)
	}
	return out, nil
}

func (s *fakeStore) CreateCall(ctx context.Context, req calls.NewCall) (*calls.Call, error) {
	now := time.Now()
	c := calls.Call{
		ID:              uuid.New(),
		AgentID:         req.AgentID,
		VapiCallID:      req.VapiCallID,
		Direction:       req.Direction,
		FromNumber:      req.FromNumber,
		ToNumber:        req.ToNumber,
		Outcome:         req.Outcome,
		EndedReason:     req.EndedReason,
		DurationSeconds: req.DurationSeconds,
		Cost:            req.Cost,
		RecordingURL:    req.RecordingURL,
		StartedAt:       req.StartedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[c.ID] = &c
	stored := c
	return &stored, nil
}

func (s *fakeStore) UpdateCall(ctx context.Context, id uuid.UUID, upd calls.Update) (*calls.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate {
		return nil, fmt.Errorf("fake: update failed")
	}
	c, ok := s.calls[id]
	if !ok {
		return nil, calls.ErrCallNotFound
	}
	applyUpdate(c, upd)
	c.UpdatedAt = time.Now()
	copied := *c
	return &copied, nil
}

func (s *fakeStore) DeleteCall(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calls[id]; !ok {
		return false, nil
	}
	delete(s.calls, id)
	return true, nil
}

func (s *fakeStore) CreateWebhookLog(ctx context.Context, kind string, payload []byte) (*webhooklog.Entry, error) {
	e := &webhooklog.Entry{
		ID:        uuid.New(),
		Type:      kind,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[e.ID] = e
	copied := *e
	return &copied, nil
}

func (s *fakeStore) UpdateWebhookLog(ctx context.Context, id uuid.UUID, processed bool, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.logs[id]
	if !ok {
		return fmt.Errorf("fake: log entry %s not found", id)
	}
	e.Processed = processed
	e.Error = errMsg
	return nil
}

func (s *fakeStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeStore) singleCall() *calls.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) != 1 {
		return nil
	}
	for _, c := range s.calls {
		copied := *c
		return &copied
	}
	return nil
}

func (s *fakeStore) singleLog() *webhooklog.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.logs) != 1 {
		return nil
	}
	for _, e := range s.logs {
		copied := *e
		return &copied
	}
	return nil
}

// recordingNotifier captures Notify calls for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

type notification struct {
	userID  string
	event   string
	payload any
}

func (n *recordingNotifier) Notify(ctx context.Context, userID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{userID: userID, event: event, payload: payload})
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func (n *recordingNotifier) last() *notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.calls) == 0 {
		return nil
	}
	copied := n.calls[len(n.calls)-1]
	return &copied
}
