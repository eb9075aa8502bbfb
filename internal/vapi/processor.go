package vapi

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dialdeskhq/dialdesk-platform/internal/observability/metrics"
	"github.com/dialdeskhq/dialdesk-platform/pkg/logging"
)

// Processing outcomes, recorded on the audit entry and in metrics.
const (
	OutcomeCreated       = "created"
	OutcomeUpdated       = "updated"
	OutcomeUnchanged     = "unchanged"
	OutcomeDropped       = "dropped"
	OutcomeIgnored       = "ignored"
	OutcomeAgentNotFound = "agent_not_found"
	OutcomeError         = "error"
)

// Alerter is notified about processing failures so an operator can be
// paged when they pile up.
type Alerter interface {
	RecordFailure(ctx context.Context, kind string, err error)
}

// Processor runs the full pipeline for one inbound webhook: audit entry,
// classification, extraction, resolution, merge, and the tenant refresh
// signal. It never propagates an error to the HTTP layer; everything lands
// in the audit log.
type Processor struct {
	store    Store
	notifier Notifier
	resolver *Resolver
	metrics  *metrics.WebhookMetrics
	alerts   Alerter
	logger   *logging.Logger
	tracer   trace.Tracer
}

// ProcessorConfig configures a Processor.
type ProcessorConfig struct {
	Store    Store
	Notifier Notifier
	Metrics  *metrics.WebhookMetrics
	Alerts   Alerter
	Logger   *logging.Logger
}

// NewProcessor creates a processor. Store is required; everything else is
// optional.
func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.Store == nil {
		panic("vapi: store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	return &Processor{
		store:    cfg.Store,
		notifier: cfg.Notifier,
		resolver: NewResolver(cfg.Store, cfg.Logger),
		metrics:  cfg.Metrics,
		alerts:   cfg.Alerts,
		logger:   cfg.Logger,
		tracer:   otel.Tracer("dialdesk/vapi"),
	}
}

// Process handles one raw webhook payload end to end.
func (p *Processor) Process(ctx context.Context, raw []byte) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "vapi.webhook.process")
	defer span.End()

	ev := Classify(raw)
	kind := ev.Kind.String()
	span.SetAttributes(attribute.String("webhook.kind", kind))
	p.metrics.ObserveReceived(kind)

	entry, err := p.store.CreateWebhookLog(ctx, kind, raw)
	if err != nil {
		p.logger.Error("failed to create webhook log entry", "error", err, "kind", kind)
		p.metrics.ObserveProcessed(kind, OutcomeError)
		p.recordFailure(ctx, kind, err)
		return
	}

	outcome, errMsg := p.handle(ctx, ev)
	processed := outcome != OutcomeError

	if err := p.store.UpdateWebhookLog(ctx, entry.ID, processed, errMsg); err != nil {
		p.logger.Error("failed to finalize webhook log entry", "error", err, "entry_id", entry.ID)
	}

	span.SetAttributes(attribute.String("webhook.outcome", outcome))
	p.metrics.ObserveProcessed(kind, outcome)
	p.metrics.ObserveLatency(kind, time.Since(start).Seconds())
	if outcome == OutcomeError {
		p.recordFailure(ctx, kind, errors.New(errMsg))
	}
}

// handle runs classification through merge and returns the outcome plus the
// message recorded on the audit entry's error field (empty on success).
func (p *Processor) handle(ctx context.Context, ev Event) (string, string) {
	if ev.Kind == KindUnknown || ev.Body == nil {
		p.logger.Info("ignoring unclassifiable webhook payload")
		return OutcomeIgnored, ""
	}

	fact := Extract(ev)
	res, err := p.resolver.Resolve(ctx, fact)
	if err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			p.logger.Warn("webhook references unknown assistant",
				"assistant_id", fact.AssistantID,
				"vapi_call_id", fact.CallID,
			)
			return OutcomeAgentNotFound, err.Error()
		}
		p.logger.Error("call resolution failed", "error", err, "vapi_call_id", fact.CallID)
		return OutcomeError, err.Error()
	}
	p.metrics.ObserveDuplicates(res.DuplicatesRemoved)

	switch res.Action {
	case ActionDropped:
		return OutcomeDropped, ""
	case ActionCreated:
		p.logger.Info("created call record from webhook",
			"call_id", res.Call.ID,
			"vapi_call_id", fact.CallID,
			"agent_id", res.Agent.ID,
		)
		p.notifyTenant(ctx, res, OutcomeCreated)
		return OutcomeCreated, ""
	}

	upd := BuildUpdate(res.Call, fact)
	if upd.IsEmpty() {
		return OutcomeUnchanged, ""
	}
	updated, err := p.store.UpdateCall(ctx, res.Call.ID, upd)
	if err != nil {
		p.logger.Error("call update failed", "error", err, "call_id", res.Call.ID)
		return OutcomeError, err.Error()
	}
	res.Call = updated
	p.logger.Info("merged webhook fields into call record",
		"call_id", updated.ID,
		"tier", res.Tier,
		"outcome", updated.Outcome,
	)
	p.notifyTenant(ctx, res, OutcomeUpdated)
	return OutcomeUpdated, ""
}

func (p *Processor) notifyTenant(ctx context.Context, res *Resolution, action string) {
	if res.Agent == nil || res.Call == nil {
		return
	}
	p.notifier.Notify(ctx, res.Agent.UserID.String(), "calls:updated", map[string]any{
		"callId":  res.Call.ID.String(),
		"agentId": res.Agent.ID.String(),
		"action":  action,
	})
}

func (p *Processor) recordFailure(ctx context.Context, kind string, err error) {
	if p.alerts == nil {
		return
	}
	p.alerts.RecordFailure(ctx, kind, err)
}
