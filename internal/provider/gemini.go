package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"linenote/internal/domain"
)

const (
	geminiDefaultModel  = "gemini-2.5-flash"
	geminiSummaryTokens = 2048
)

type GeminiConfig struct {
	APIKey      string
	Model       string // summarization model
	VisionModel string // defaults to Model
	BaseURL     string // override for tests and proxies
	Client      *http.Client
	Logger      *slog.Logger
}

// Gemini implements domain.Summarizer and domain.Describer on the Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	visionModel string
	logger      *slog.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = geminiDefaultModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.Client,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{
		client:      client,
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		logger:      cfg.Logger,
	}, nil
}

// Summarize sends a fully rendered prompt and returns the model's text.
func (g *Gemini) Summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: geminiSummaryTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	g.logger.Debug("gemini summary", "model", g.model, "prompt_len", len(prompt), "text_len", len(text))
	return text, nil
}

// Describe asks the vision model to describe an image.
func (g *Gemini) Describe(ctx context.Context, req domain.DescribeRequest) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(req.Instruction),
		genai.NewPartFromBytes(req.Image, req.MimeType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.visionModel, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini vision: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	g.logger.Debug("gemini image description", "model", g.visionModel, "bytes", len(req.Image), "text_len", len(text))
	return text, nil
}
