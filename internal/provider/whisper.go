package provider

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"linenote/internal/domain"
)

// WhisperConfig configures the speech-to-text provider.
type WhisperConfig struct {
	APIBase string // optional, e.g. "https://api.groq.com/openai/v1"
	APIKey  string
	Model   string // e.g. "whisper-1" (OpenAI) or "whisper-large-v3" (Groq)
	Client  *http.Client
	Logger  *slog.Logger
}

// WhisperProvider transcribes audio through the OpenAI-compatible
// transcription endpoint.
type WhisperProvider struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

func NewWhisperProvider(cfg WhisperConfig) *WhisperProvider {
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.APIBase); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.Client != nil {
		opts = append(opts, option.WithHTTPClient(cfg.Client))
	}
	return &WhisperProvider{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Transcribe converts audio to text. req.Filename must carry the extension,
// the service uses it to detect the container format.
func (w *WhisperProvider) Transcribe(ctx context.Context, req domain.TranscribeRequest) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(req.Audio, req.Filename, audioContentType(req.Filename)),
		Model: openai.AudioModel(w.model),
	}
	if req.Language != "" {
		params.Language = openai.String(req.Language)
	}
	if req.Prompt != "" {
		params.Prompt = openai.String(req.Prompt)
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	w.logger.Info("transcription complete", "model", w.model, "text_len", len(text), "language", req.Language)
	return text, nil
}

func audioContentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "audio/mp4"
}
