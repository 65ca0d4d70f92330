// Package extract resolves classified content into normalized text.
//
// Every resolver call ends in either non-empty text or a soft failure.
// Soft failures are logged and recorded as Attempts; nothing here returns an
// error to the caller.
package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"linenote/internal/domain"
	"linenote/internal/metrics"
)

// Resolver names, as they appear in logs, metrics and Attempts.
const (
	ResolverApify     = "apify"
	ResolverFirecrawl = "firecrawl"
	ResolverHTML      = "html"
	ResolverMedia     = "line_media"
	ResolverWhisper   = "whisper"
	ResolverVision    = "vision"
	ResolverUpload    = "drive_upload"
)

// Config wires the collaborators. A nil collaborator is treated as not
// configured.
type Config struct {
	Media       domain.MediaFetcher
	Transcriber domain.Transcriber
	Describer   domain.Describer
	Scraper     domain.SocialScraper
	Crawler     domain.Crawler
	Fallback    domain.HTMLExtractor
	Uploader    domain.FileUploader

	Language          string // transcription language hint
	Prompt            string // transcription vocabulary hint
	VisionInstruction string
	VisionMaxTokens   int

	TempDir     string        // where voice messages are buffered; "" uses os.TempDir
	CallTimeout time.Duration // deadline for each collaborator call; 0 disables
	Location    *time.Location
	Logger      *slog.Logger
}

// Strategy runs the per-kind resolver chains.
type Strategy struct {
	cfg    Config
	logger *slog.Logger
}

func NewStrategy(cfg Config) *Strategy {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.VisionInstruction == "" {
		cfg.VisionInstruction = DefaultVisionInstruction
	}
	if cfg.VisionMaxTokens <= 0 {
		cfg.VisionMaxTokens = 1024
	}
	return &Strategy{cfg: cfg, logger: cfg.Logger}
}

// DefaultVisionInstruction frames image description for note taking.
const DefaultVisionInstruction = "You are helping someone keep a personal knowledge base. " +
	"Describe this image so it can be found again later: transcribe any visible text verbatim, " +
	"then summarize what the image shows and why it might have been saved. " +
	"Answer in the language of any text in the image, otherwise in Traditional Chinese."

// Attempt records the outcome of one resolver call.
type Attempt struct {
	Resolver string
	Err      error // nil on success
}

// Resolution is the typed result of an extraction chain.
type Resolution struct {
	Result   domain.ExtractionResult
	Attempts []Attempt
}

// Err is nil when text was produced. Otherwise it is ErrUnavailable when no
// resolver in the chain was configured, and ErrEmptyResult in every other
// case.
func (r Resolution) Err() error {
	if !r.Result.Empty() {
		return nil
	}
	if len(r.Attempts) == 0 {
		return domain.ErrEmptyResult
	}
	for _, a := range r.Attempts {
		if !errors.Is(a.Err, domain.ErrUnavailable) {
			return domain.ErrEmptyResult
		}
	}
	return domain.ErrUnavailable
}

// Unavailable reports whether the chain failed only for lack of configuration.
func (r Resolution) Unavailable() bool {
	return errors.Is(r.Err(), domain.ErrUnavailable)
}

// resolver is one step of a chain. A nil run means the step is not configured.
type resolver struct {
	name string
	run  func(ctx context.Context) (string, error)
}

// runChain tries each resolver in order and stops at the first non-empty text.
func (s *Strategy) runChain(ctx context.Context, base domain.ExtractionResult, chain ...resolver) Resolution {
	res := Resolution{Result: base}
	for _, step := range chain {
		text, err := s.call(ctx, step)
		res.Attempts = append(res.Attempts, Attempt{Resolver: step.name, Err: err})
		if err == nil {
			res.Result.Text = text
			res.Result.Resolver = step.name
			return res
		}
		s.softFailure(base.Source, step.name, err)
	}
	return res
}

// call runs one resolver under the per-call deadline and normalizes an
// empty answer into ErrEmptyResult.
func (s *Strategy) call(ctx context.Context, step resolver) (string, error) {
	if step.run == nil {
		return "", domain.ErrUnavailable
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	started := time.Now()
	text, err := step.run(ctx)
	metrics.ObserveCall(step.name, time.Since(started))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.ErrEmptyResult
	}
	return text, nil
}

func (s *Strategy) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}

func (s *Strategy) softFailure(source domain.SourceKind, resolver string, err error) {
	s.logger.Warn("extraction resolver failed",
		"source", source,
		"resolver", resolver,
		"failure", failureKind(err),
		"err", err,
	)
	metrics.ResolverFailed(resolver)
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrEmptyResult):
		return "empty"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// Command returns the command argument as-is. No collaborator is involved.
func (s *Strategy) Command(argument string) Resolution {
	return Resolution{Result: domain.ExtractionResult{Text: argument, Source: domain.SourceCommand}}
}

// PlainText returns the raw message text as-is.
func (s *Strategy) PlainText(text string) Resolution {
	return Resolution{Result: domain.ExtractionResult{Text: text, Source: domain.SourcePlainText}}
}
