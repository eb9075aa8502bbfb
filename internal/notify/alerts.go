package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dialdeskhq/dialdesk-platform/pkg/logging"
)

// AlertService emails the operator when webhook processing failures exceed
// a budget within a sliding window. One email per window; the counter resets
// after firing so a sustained outage pages once per window, not per event.
type AlertService struct {
	email     EmailSender
	recipient string
	window    time.Duration
	budget    int
	logger    *logging.Logger
	now       func() time.Time

	mu          sync.Mutex
	windowStart time.Time
	failures    int
	lastError   string
}

// AlertConfig configures the AlertService.
type AlertConfig struct {
	Email     EmailSender
	Recipient string
	Window    time.Duration
	Budget    int
	Logger    *logging.Logger
}

// NewAlertService creates an alert service. Returns a disabled (but safe to
// call) service when no sender or recipient is configured.
func NewAlertService(cfg AlertConfig) *AlertService {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.Budget <= 0 {
		cfg.Budget = 5
	}
	return &AlertService{
		email:     cfg.Email,
		recipient: cfg.Recipient,
		window:    cfg.Window,
		budget:    cfg.Budget,
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// RecordFailure counts one processing failure and fires an alert email when
// the budget for the current window is exhausted.
func (s *AlertService) RecordFailure(ctx context.Context, kind string, err error) {
	if s == nil {
		return
	}
	s.mu.Lock()
	now := s.now()
	if s.windowStart.IsZero() || now.Sub(s.windowStart) > s.window {
		s.windowStart = now
		s.failures = 0
	}
	s.failures++
	if err != nil {
		s.lastError = err.Error()
	}
	fire := s.failures >= s.budget
	count := s.failures
	lastError := s.lastError
	if fire {
		s.windowStart = now
		s.failures = 0
	}
	s.mu.Unlock()

	if !fire {
		return
	}
	s.logger.Error("webhook failure budget exhausted",
		"failures", count,
		"window", s.window.String(),
		"kind", kind,
	)
	if s.email == nil || s.recipient == "" {
		return
	}
	msg := EmailMessage{
		To:      s.recipient,
		Subject: fmt.Sprintf("DialDesk: %d webhook failures in %s", count, s.window),
		Body: fmt.Sprintf(`Webhook processing has failed %d times within %s.

Last event kind: %s
Last error: %s

Check the webhook audit log for details.`, count, s.window, kind, lastError),
	}
	if sendErr := s.email.Send(ctx, msg); sendErr != nil {
		s.logger.Error("failed to send failure alert", "error", sendErr)
	}
}
