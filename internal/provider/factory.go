package provider

import (
	"context"
	"fmt"
	"log/slog"

	"linenote/internal/config"
	"linenote/internal/domain"
)

// Set holds the AI and scraping collaborators built from config. A nil
// field means the capability is not configured.
type Set struct {
	Summarizer  domain.Summarizer
	Describer   domain.Describer
	Transcriber domain.Transcriber
	Scraper     domain.SocialScraper
	Crawler     domain.Crawler
}

// Build creates every collaborator whose credentials are present.
func Build(ctx context.Context, cfg config.ProvidersConfig, logger *slog.Logger) (Set, error) {
	var set Set
	client := SharedHTTPClient(cfg.CallTimeout())

	if cfg.Gemini.APIKey != "" {
		g, err := NewGemini(ctx, GeminiConfig{
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			VisionModel: cfg.Gemini.VisionModel,
			Client:      client,
			Logger:      logger.With("provider", "gemini"),
		})
		if err != nil {
			return Set{}, fmt.Errorf("build gemini: %w", err)
		}
		set.Summarizer = g
		set.Describer = g
	}

	if cfg.OpenAI.APIKey != "" {
		set.Transcriber = NewWhisperProvider(WhisperConfig{
			APIBase: cfg.OpenAI.APIBase,
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.TranscriptionModel,
			Client:  client,
			Logger:  logger.With("provider", "whisper"),
		})
	}

	if cfg.Apify.Token != "" {
		set.Scraper = NewApify(ApifyConfig{
			Token: cfg.Apify.Token,
			Actors: map[domain.Platform]string{
				domain.PlatformThreads:   cfg.Apify.ThreadsActor,
				domain.PlatformInstagram: cfg.Apify.InstagramActor,
				domain.PlatformFacebook:  cfg.Apify.FacebookActor,
			},
			Client: client,
			Logger: logger.With("provider", "apify"),
		})
	}

	if cfg.Firecrawl.APIKey != "" {
		set.Crawler = NewFirecrawl(FirecrawlConfig{
			APIKey:  cfg.Firecrawl.APIKey,
			BaseURL: cfg.Firecrawl.APIBase,
			Client:  client,
			Logger:  logger.With("provider", "firecrawl"),
		})
	}

	return set, nil
}

// Status lists which capabilities are configured, for startup logs and
// the doctor command.
func (s Set) Status() map[string]bool {
	return map[string]bool{
		"summarize":  s.Summarizer != nil,
		"vision":     s.Describer != nil,
		"transcribe": s.Transcriber != nil,
		"social":     s.Scraper != nil,
		"crawl":      s.Crawler != nil,
	}
}
