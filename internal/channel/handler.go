package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"linenote/internal/domain"
	"linenote/internal/metrics"
	"linenote/internal/pipeline"
)

const maxBodyBytes int64 = 1 << 20 // 1 MiB

// Processor runs one event through the pipeline.
type Processor interface {
	Handle(ctx context.Context, ev domain.InboundEvent) pipeline.Result
}

// Ledger remembers which events were already handled.
type Ledger interface {
	Claim(ctx context.Context, eventID string) (bool, error)
}

// WebhookHandler receives LINE webhook callbacks.
type WebhookHandler struct {
	secret    string
	processor Processor
	replier   domain.ReplySender
	ledger    Ledger
	logger    *slog.Logger
}

type WebhookConfig struct {
	ChannelSecret string
	Processor     Processor
	Replier       domain.ReplySender
	Ledger        Ledger // optional
	Logger        *slog.Logger
}

func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	return &WebhookHandler{
		secret:    cfg.ChannelSecret,
		processor: cfg.Processor,
		replier:   cfg.Replier,
		ledger:    cfg.Ledger,
		logger:    cfg.Logger.With("handler", "line_webhook"),
	}
}

// Register mounts the callback route.
func (h *WebhookHandler) Register(e *echo.Echo, path string) {
	e.POST(path, h.Handle)
}

// Handle verifies the request, runs every message event in order and
// acknowledges with "OK". Events are handled before the response is
// written, one request at a time per connection.
func (h *WebhookHandler) Handle(c echo.Context) error {
	requestID := uuid.NewString()
	log := h.logger.With("request_id", requestID)
	c.Response().Header().Set(echo.HeaderXRequestID, requestID)

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
	}
	if int64(len(body)) > maxBodyBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("payload too large: max %d bytes", maxBodyBytes))
	}

	if err := VerifySignature(h.secret, body, c.Request().Header.Get(SignatureHeader)); err != nil {
		metrics.SignatureRejected.Inc()
		log.Warn("webhook rejected", "remote", c.RealIP())
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	events, skipped, err := ParseEvents(body)
	if err != nil {
		log.Warn("webhook body not understood", "err", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook payload")
	}
	if skipped > 0 {
		log.Debug("unsupported events ignored", "count", skipped)
	}

	// The platform may hang up on a slow request; the work still finishes.
	ctx := context.WithoutCancel(c.Request().Context())
	for _, ev := range events {
		h.dispatch(ctx, log, ev)
	}
	return c.String(http.StatusOK, "OK")
}

func (h *WebhookHandler) dispatch(ctx context.Context, log *slog.Logger, ev domain.InboundEvent) {
	log = log.With("event_id", ev.EventID)
	metrics.EventReceived(ev.Kind())

	if h.ledger != nil {
		first, err := h.ledger.Claim(ctx, ev.EventID)
		switch {
		case err != nil:
			log.Warn("event ledger unavailable", "err", err)
		case !first:
			metrics.RedeliveriesSkipped.Inc()
			log.Info("redelivered event skipped", "redelivery", ev.Redelivery)
			return
		}
	}

	result := h.processor.Handle(ctx, ev)

	if ev.ReplyToken == "" {
		log.Debug("event carries no reply token")
		return
	}
	if err := h.replier.Reply(ctx, ev.ReplyToken, result.Reply); err != nil {
		metrics.ReplyFailures.Inc()
		log.Error("reply failed", "err", err)
	}
}
