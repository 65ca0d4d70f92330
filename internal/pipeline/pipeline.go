// Package pipeline handles one inbound event from access check to reply.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"linenote/internal/classify"
	"linenote/internal/domain"
	"linenote/internal/enrich"
	"linenote/internal/extract"
	"linenote/internal/knowledge"
	"linenote/internal/reply"
)

// Gatekeeper decides whether a sender may use the bot.
type Gatekeeper interface {
	Permit(senderID string) bool
}

type Config struct {
	Guard     Gatekeeper
	Strategy  *extract.Strategy
	Enricher  *enrich.Enricher
	Knowledge *knowledge.Adapter
	Logger    *slog.Logger
}

// Pipeline runs the steps of one event strictly in sequence. It holds no
// per-event state and is safe for concurrent use by different requests.
type Pipeline struct {
	guard     Gatekeeper
	strategy  *extract.Strategy
	enricher  *enrich.Enricher
	knowledge *knowledge.Adapter
	logger    *slog.Logger
}

func New(cfg Config) *Pipeline {
	return &Pipeline{
		guard:     cfg.Guard,
		strategy:  cfg.Strategy,
		enricher:  cfg.Enricher,
		knowledge: cfg.Knowledge,
		logger:    cfg.Logger,
	}
}

// Result is what one pipeline run produced.
type Result struct {
	Reply     string
	Route     classify.Route
	Persisted bool
}

// Handle processes ev and always returns a reply.
func (p *Pipeline) Handle(ctx context.Context, ev domain.InboundEvent) Result {
	started := time.Now()
	log := p.logger.With("event_id", ev.EventID, "kind", ev.Kind())

	if !p.guard.Permit(ev.SenderID) {
		return Result{Reply: reply.Compose(reply.Outcome{Denied: true})}
	}

	route := classify.Classify(ev)
	out := reply.Outcome{Route: route}
	log.Debug("event classified", "target", route.Target, "platform", route.Platform, "url", route.URL)

	var res extract.Resolution
	switch route.Target {
	case classify.TargetEcho:
		return Result{Reply: reply.Compose(out), Route: route}

	case classify.TargetSummarize:
		if strings.TrimSpace(route.Text) == "" {
			return Result{Reply: reply.Compose(out), Route: route}
		}
		res = p.strategy.Command(route.Text)

	case classify.TargetSocialPost:
		res = p.strategy.SocialPost(ctx, route.URL, route.Platform)

	case classify.TargetWebPage:
		res = p.strategy.WebPage(ctx, route.URL)

	case classify.TargetTranscribe:
		res = p.strategy.Audio(ctx, route.MediaID)

	case classify.TargetDescribe:
		img := p.strategy.Image(ctx, route.MediaID)
		res = img.Resolution
		out.MediaLink, out.UploadErr = img.MediaLink, img.UploadErr
	}

	out.Result = res.Result
	out.ExtractErr = res.Err()

	// Image descriptions are already a summary of the photo.
	if !res.Result.Empty() && route.Target != classify.TargetDescribe {
		out.Digest = p.enricher.Digest(ctx, res.Result.Text, enrich.TopicFor(res.Result.Source))
	}

	persisted := p.knowledge.Save(ctx, knowledge.Entry{
		Result:    res.Result,
		Digest:    out.Digest,
		SenderID:  ev.SenderID,
		MediaLink: out.MediaLink,
	})

	log.Info("event handled",
		"target", route.Target,
		"resolver", res.Result.Resolver,
		"chars", len([]rune(res.Result.Text)),
		"digest", out.Digest != "",
		"persisted", persisted,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return Result{Reply: reply.Compose(out), Route: route, Persisted: persisted}
}
