// Package enrich turns normalized text into an optional digest.
package enrich

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"linenote/internal/domain"
	"linenote/internal/metrics"
)

type Config struct {
	Summarizer  domain.Summarizer // nil disables enrichment
	Templates   Templates         // nil uses DefaultTemplates
	Location    *time.Location
	CallTimeout time.Duration
	Logger      *slog.Logger
}

// Enricher produces digests. A digest is advisory: every failure yields "".
type Enricher struct {
	summarizer domain.Summarizer
	templates  Templates
	loc        *time.Location
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func New(cfg Config) *Enricher {
	if cfg.Templates == nil {
		cfg.Templates = DefaultTemplates()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Enricher{
		summarizer: cfg.Summarizer,
		templates:  cfg.Templates,
		loc:        cfg.Location,
		timeout:    cfg.CallTimeout,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// Available reports whether a summarizer is configured.
func (e *Enricher) Available() bool {
	return e.summarizer != nil
}

// Digest summarizes text with the template for topic.
func (e *Enricher) Digest(ctx context.Context, text string, topic Topic) string {
	digest, err := e.digest(ctx, text, topic)
	switch {
	case err == nil:
		return digest
	case errors.Is(err, domain.ErrUnavailable):
		e.logger.Debug("enrichment skipped, no summarizer configured", "topic", topic)
	default:
		e.logger.Warn("enrichment failed", "topic", topic, "empty", errors.Is(err, domain.ErrEmptyResult), "err", err)
		metrics.EnrichmentFailures.Inc()
	}
	return ""
}

func (e *Enricher) digest(ctx context.Context, text string, topic Topic) (string, error) {
	if e.summarizer == nil {
		return "", domain.ErrUnavailable
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyResult
	}

	prompt := e.templates.Render(topic, e.now().In(e.loc).Format("2006-01-02 15:04 (Monday)"), text)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	started := time.Now()
	out, err := e.summarizer.Summarize(ctx, prompt)
	metrics.ObserveCall("summarizer", time.Since(started))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", domain.ErrEmptyResult
	}
	return out, nil
}
