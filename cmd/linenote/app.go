package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"linenote/internal/browser"
	"linenote/internal/channel"
	"linenote/internal/config"
	"linenote/internal/domain"
	"linenote/internal/enrich"
	"linenote/internal/extract"
	"linenote/internal/knowledge"
	"linenote/internal/memory"
	"linenote/internal/pipeline"
	"linenote/internal/provider"
	"linenote/internal/security"
	"linenote/internal/server"
	"linenote/internal/storage"
	"linenote/internal/webpage"
)

// app is everything serve needs, built once from config.
type app struct {
	server    *server.Server
	store     *memory.SQLiteStore // nil when memory is disabled
	providers provider.Set
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{}
	loc := cfg.General.Location()
	timeout := cfg.Providers.CallTimeout()

	providers, err := provider.Build(ctx, cfg.Providers, log)
	if err != nil {
		return nil, err
	}
	a.providers = providers

	line, err := channel.NewLineClient(channel.LineClientConfig{
		AccessToken: cfg.Line.AccessToken,
		HTTPClient:  provider.SharedHTTPClient(timeout),
		Logger:      log.With("component", "line"),
	})
	if err != nil {
		return nil, err
	}

	if cfg.Memory.Enabled {
		a.store, err = memory.NewSQLiteStore(cfg.Memory.DBPath, log.With("component", "memory"))
		if err != nil {
			return nil, fmt.Errorf("memory store: %w", err)
		}
	}

	templates := enrich.DefaultTemplates()
	if cfg.General.PromptsFile != "" {
		if templates, err = enrich.LoadTemplates(cfg.General.PromptsFile); err != nil {
			a.Close()
			return nil, err
		}
	}

	strategy := extract.NewStrategy(extract.Config{
		Media:           line,
		Transcriber:     providers.Transcriber,
		Describer:       providers.Describer,
		Scraper:         providers.Scraper,
		Crawler:         providers.Crawler,
		Fallback:        buildFallback(cfg.Scrape, timeout, log),
		Uploader:        buildUploader(ctx, cfg.Storage.Drive, log),
		Language:        cfg.Providers.OpenAI.Language,
		Prompt:          cfg.Providers.OpenAI.Prompt,
		VisionMaxTokens: cfg.Providers.Gemini.VisionMaxTokens,
		TempDir:         cfg.General.TempDir,
		CallTimeout:     timeout,
		Location:        loc,
		Logger:          log.With("component", "extract"),
	})

	p := pipeline.New(pipeline.Config{
		Guard:    security.NewGuard(cfg.Line.AllowedUserID, log.With("component", "guard")),
		Strategy: strategy,
		Enricher: enrich.New(enrich.Config{
			Summarizer:  providers.Summarizer,
			Templates:   templates,
			Location:    loc,
			CallTimeout: timeout,
			Logger:      log.With("component", "enrich"),
		}),
		Knowledge: knowledge.NewAdapter(knowledge.AdapterConfig{
			Writer:      buildWriter(cfg, a.store, timeout, log),
			Location:    loc,
			CallTimeout: timeout,
			Logger:      log.With("component", "knowledge"),
		}),
		Logger: log.With("component", "pipeline"),
	})

	webhook := channel.WebhookConfig{
		ChannelSecret: cfg.Line.ChannelSecret,
		Processor:     p,
		Replier:       line,
		Logger:        log,
	}
	if a.store != nil {
		webhook.Ledger = a.store
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Endpoint
	}
	a.server = server.New(server.Config{
		Addr:         cfg.Server.Addr(),
		CallbackPath: cfg.Server.CallbackPath,
		Webhook:      channel.NewWebhookHandler(webhook),
		MetricsPath:  metricsPath,
		Status:       providers.Status(),
		Logger:       log.With("component", "server"),
	})
	return a, nil
}

func buildFallback(cfg config.ScrapeConfig, timeout time.Duration, log *slog.Logger) domain.HTMLExtractor {
	var fetcher webpage.Fetcher
	switch cfg.Renderer {
	case "browser":
		fetcher = browser.NewRenderer(browser.RendererConfig{
			ProfileDir: cfg.ProfileDir,
			UserAgent:  cfg.UserAgent,
			Headless:   true,
			Logger:     log.With("component", "browser"),
		})
	default:
		fetcher = webpage.NewHTTPFetcher(webpage.HTTPFetcherConfig{
			Client:    provider.SharedHTTPClient(timeout),
			UserAgent: cfg.UserAgent,
			Logger:    log.With("component", "webpage"),
		})
	}
	return webpage.NewExtractor(webpage.ExtractorConfig{
		Fetcher:  fetcher,
		MaxChars: cfg.MaxChars,
		Logger:   log.With("component", "webpage"),
	})
}

// buildUploader returns nil when Drive is not set up; uploads are optional.
func buildUploader(ctx context.Context, cfg config.DriveConfig, log *slog.Logger) domain.FileUploader {
	if cfg.CredentialsFile == "" {
		return nil
	}
	d, err := storage.NewDrive(ctx, storage.DriveConfig{
		CredentialsFile: cfg.CredentialsFile,
		FolderID:        cfg.FolderID,
		Logger:          log.With("component", "drive"),
	})
	if err != nil {
		log.Warn("drive uploads disabled", "err", err)
		return nil
	}
	return d
}

func buildWriter(cfg *config.Config, store *memory.SQLiteStore, timeout time.Duration, log *slog.Logger) domain.NoteWriter {
	switch cfg.Knowledge.Backend {
	case "notion":
		n := cfg.Knowledge.Notion
		if n.APIKey == "" || n.DatabaseID == "" {
			log.Warn("notion backend selected but not configured; notes will not be saved")
			return nil
		}
		return knowledge.NewNotionWriter(knowledge.NotionConfig{
			APIKey:     n.APIKey,
			DatabaseID: n.DatabaseID,
			BaseURL:    n.APIBase,
			Client:     provider.SharedHTTPClient(timeout),
			Logger:     log.With("component", "notion"),
		})
	case "sqlite":
		if store == nil {
			return nil
		}
		return store
	default:
		return nil
	}
}
