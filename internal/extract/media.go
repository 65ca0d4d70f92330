package extract

import (
	"context"
	"fmt"
	"os"

	"linenote/internal/domain"
	"linenote/internal/metrics"
)

// Audio fetches a voice message, buffers it in a temp file and transcribes
// it. The temp file is removed before Audio returns.
func (s *Strategy) Audio(ctx context.Context, messageID string) Resolution {
	base := domain.ExtractionResult{Source: domain.SourceTranscript}
	if s.cfg.Transcriber == nil {
		// Checked before the download so an unconfigured bot costs nothing.
		return s.runChain(ctx, base, resolver{name: ResolverWhisper})
	}

	data, ok, res := s.fetchMedia(ctx, base, messageID)
	if !ok {
		return res
	}

	return s.runChain(ctx, base, resolver{name: ResolverWhisper, run: func(ctx context.Context) (string, error) {
		return s.transcribeBuffered(ctx, data)
	}})
}

func (s *Strategy) transcribeBuffered(ctx context.Context, data []byte) (string, error) {
	f, err := os.CreateTemp(s.cfg.TempDir, "linenote-voice-*.m4a")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		if rmErr := os.Remove(f.Name()); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Warn("temp audio not removed", "path", f.Name(), "err", rmErr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("buffer audio: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return "", fmt.Errorf("rewind audio: %w", err)
	}

	return s.cfg.Transcriber.Transcribe(ctx, domain.TranscribeRequest{
		Audio:    f,
		Filename: "voice.m4a",
		Language: s.cfg.Language,
		Prompt:   s.cfg.Prompt,
	})
}

// ImageResolution adds the outcome of the best-effort upload.
type ImageResolution struct {
	Resolution
	MediaLink string
	UploadErr error // nil when MediaLink is set
}

// Image describes a photo and uploads the original bytes. The upload result
// never changes the description result.
func (s *Strategy) Image(ctx context.Context, messageID string) ImageResolution {
	base := domain.ExtractionResult{Source: domain.SourceImageDescription}

	data, ok, res := s.fetchMedia(ctx, base, messageID)
	if !ok {
		return ImageResolution{Resolution: res, UploadErr: domain.ErrUnavailable}
	}
	mimeType := sniffImage(data)

	describe := resolver{name: ResolverVision}
	if s.cfg.Describer != nil {
		describe.run = func(ctx context.Context) (string, error) {
			return s.cfg.Describer.Describe(ctx, domain.DescribeRequest{
				Image:       data,
				MimeType:    mimeType,
				Instruction: s.cfg.VisionInstruction,
				MaxTokens:   s.cfg.VisionMaxTokens,
			})
		}
	}
	out := ImageResolution{Resolution: s.runChain(ctx, base, describe)}
	out.MediaLink, out.UploadErr = s.upload(ctx, data, mimeType)
	return out
}

func (s *Strategy) upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	if s.cfg.Uploader == nil {
		return "", domain.ErrUnavailable
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	name := "linenote-" + nowIn(s.cfg.Location).Format("20060102-150405") + extensionFor(mimeType)
	link, err := s.cfg.Uploader.Upload(ctx, data, name, mimeType)
	if err == nil && link == "" {
		err = domain.ErrEmptyResult
	}
	if err != nil {
		s.logger.Warn("image upload failed", "name", name, "err", err)
		metrics.UploadFailures.Inc()
		return "", err
	}
	return link, nil
}

// fetchMedia downloads message content. On failure it returns a Resolution
// carrying the failed attempt.
func (s *Strategy) fetchMedia(ctx context.Context, base domain.ExtractionResult, messageID string) ([]byte, bool, Resolution) {
	var data []byte
	step := resolver{name: ResolverMedia}
	if s.cfg.Media != nil {
		step.run = func(ctx context.Context) (string, error) {
			b, _, err := s.cfg.Media.FetchContent(ctx, messageID)
			if err != nil {
				return "", err
			}
			if len(b) == 0 {
				return "", domain.ErrEmptyResult
			}
			data = b
			return "ok", nil
		}
	}
	_, err := s.call(ctx, step)
	if err != nil {
		s.softFailure(base.Source, ResolverMedia, err)
		return nil, false, Resolution{Result: base, Attempts: []Attempt{{Resolver: ResolverMedia, Err: err}}}
	}
	return data, true, Resolution{}
}
