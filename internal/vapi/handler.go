package vapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/dialdeskhq/dialdesk-platform/pkg/logging"
)

// Handler exposes the inbound Vapi webhook endpoint. The contract with the
// provider is "always acknowledge, diagnose asynchronously": the endpoint
// answers 200 before processing so provider-side retries can't balloon into
// duplicate floods.
type Handler struct {
	processor *Processor
	logger    *logging.Logger
	secret    string

	// dispatch runs processing after the acknowledgment; tests replace it
	// with a synchronous variant.
	dispatch func(fn func())
}

// HandlerConfig configures the webhook Handler.
type HandlerConfig struct {
	Processor *Processor
	Logger    *logging.Logger
	// Secret, when set, must match the X-Vapi-Secret request header.
	Secret string
}

// NewHandler creates the webhook handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Handler{
		processor: cfg.Processor,
		logger:    cfg.Logger,
		secret:    cfg.Secret,
		dispatch:  func(fn func()) { go fn() },
	}
}

// HandleWebhook is the HTTP handler for POST /webhooks/vapi.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Vapi-Secret")), []byte(h.secret)) != 1 {
			h.logger.Warn("rejected webhook with bad secret", "remote_ip", r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		body = nil
	}

	// Acknowledge first; the provider only needs to know we have the bytes.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})

	if len(body) == 0 {
		return
	}
	h.dispatch(func() {
		// The request context dies with the response; processing outlives it.
		h.processor.Process(context.Background(), body)
	})
}
