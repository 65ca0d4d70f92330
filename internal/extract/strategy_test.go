package extract

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linenote/internal/domain"
	"linenote/internal/logger"
)

type fakeCrawler struct {
	text  string
	err   error
	calls int
	ctx   context.Context
}

func (f *fakeCrawler) Crawl(ctx context.Context, _ string) (string, error) {
	f.calls++
	f.ctx = ctx
	return f.text, f.err
}

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) Extract(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeScraper struct {
	post  *domain.SocialPost
	err   error
	calls int
}

func (f *fakeScraper) ScrapePost(context.Context, string, domain.Platform) (*domain.SocialPost, error) {
	f.calls++
	return f.post, f.err
}

type fakeMedia struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeMedia) FetchContent(context.Context, string) ([]byte, string, error) {
	f.calls++
	return f.data, "application/octet-stream", f.err
}

type fakeTranscriber struct {
	text string
	err  error
	got  []byte
	path string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, req domain.TranscribeRequest) (string, error) {
	f.got, _ = io.ReadAll(req.Audio)
	if file, ok := req.Audio.(*os.File); ok {
		f.path = file.Name()
	}
	return f.text, f.err
}

type fakeDescriber struct {
	text  string
	err   error
	calls int
	req   domain.DescribeRequest
}

func (f *fakeDescriber) Describe(_ context.Context, req domain.DescribeRequest) (string, error) {
	f.calls++
	f.req = req
	return f.text, f.err
}

type fakeUploader struct {
	link string
	err  error
	name string
}

func (f *fakeUploader) Upload(_ context.Context, _ []byte, name, _ string) (string, error) {
	f.name = name
	return f.link, f.err
}

func newStrategy(cfg Config) *Strategy {
	cfg.Logger = logger.Discard()
	return NewStrategy(cfg)
}

func TestWebPage_CrawlerWins(t *testing.T) {
	crawler := &fakeCrawler{text: "  crawled text  "}
	fallback := &fakeExtractor{text: "local"}
	s := newStrategy(Config{Crawler: crawler, Fallback: fallback})

	res := s.WebPage(context.Background(), "https://example.com")
	require.NoError(t, res.Err())
	assert.Equal(t, "crawled text", res.Result.Text)
	assert.Equal(t, ResolverFirecrawl, res.Result.Resolver)
	assert.Equal(t, domain.SourceWebPage, res.Result.Source)
	assert.Equal(t, "https://example.com", res.Result.URL)
	assert.Equal(t, 0, fallback.calls)
}

func TestWebPage_FallbackInvokedOnce(t *testing.T) {
	for name, crawler := range map[string]*fakeCrawler{
		"empty":  {text: "   "},
		"failed": {err: errors.New("blocked by anti-bot")},
	} {
		t.Run(name, func(t *testing.T) {
			fallback := &fakeExtractor{text: "local text"}
			s := newStrategy(Config{Crawler: crawler, Fallback: fallback})

			res := s.WebPage(context.Background(), "https://example.com")
			assert.Equal(t, 1, fallback.calls)
			assert.Equal(t, "local text", res.Result.Text)
			assert.Equal(t, ResolverHTML, res.Result.Resolver)
			require.Len(t, res.Attempts, 2)
			assert.Error(t, res.Attempts[0].Err)
			assert.NoError(t, res.Attempts[1].Err)
		})
	}
}

func TestWebPage_BothEmpty(t *testing.T) {
	fallback := &fakeExtractor{}
	s := newStrategy(Config{Crawler: &fakeCrawler{}, Fallback: fallback})

	res := s.WebPage(context.Background(), "https://example.com")
	assert.Equal(t, 1, fallback.calls)
	assert.True(t, res.Result.Empty())
	assert.ErrorIs(t, res.Err(), domain.ErrEmptyResult)
	assert.False(t, res.Unavailable())
}

func TestWebPage_OnlyFallbackConfigured(t *testing.T) {
	fallback := &fakeExtractor{text: "local"}
	s := newStrategy(Config{Fallback: fallback})

	res := s.WebPage(context.Background(), "https://example.com")
	assert.Equal(t, "local", res.Result.Text)
	assert.ErrorIs(t, res.Attempts[0].Err, domain.ErrUnavailable)
}

func TestWebPage_NothingConfigured(t *testing.T) {
	res := newStrategy(Config{}).WebPage(context.Background(), "https://example.com")
	assert.True(t, res.Unavailable())
}

func TestCallDeadline(t *testing.T) {
	crawler := &fakeCrawler{text: "x"}
	s := newStrategy(Config{Crawler: crawler, CallTimeout: time.Minute})
	s.WebPage(context.Background(), "https://example.com")

	_, ok := crawler.ctx.Deadline()
	assert.True(t, ok)
}

func TestSocialPost_SingleAttempt(t *testing.T) {
	scraper := &fakeScraper{err: errors.New("actor failed")}
	s := newStrategy(Config{Scraper: scraper, Fallback: &fakeExtractor{text: "never"}})

	res := s.SocialPost(context.Background(), "https://www.threads.net/@a/post/1", domain.PlatformThreads)
	assert.Equal(t, 1, scraper.calls)
	assert.True(t, res.Result.Empty())
	assert.Len(t, res.Attempts, 1)
	assert.Equal(t, domain.PlatformThreads, res.Result.Platform)
}

func TestSocialPost_Formatting(t *testing.T) {
	scraper := &fakeScraper{post: &domain.SocialPost{Author: "@alice", Text: "hello world", Published: "2026-10-01"}}
	res := newStrategy(Config{Scraper: scraper}).SocialPost(context.Background(), "u", domain.PlatformInstagram)
	assert.Equal(t, "@alice · 2026-10-01\n\nhello world", res.Result.Text)

	scraper.post = &domain.SocialPost{Author: "alice"}
	res = newStrategy(Config{Scraper: scraper}).SocialPost(context.Background(), "u", domain.PlatformInstagram)
	assert.ErrorIs(t, res.Err(), domain.ErrEmptyResult)
}

func TestSocialPost_Unconfigured(t *testing.T) {
	res := newStrategy(Config{}).SocialPost(context.Background(), "u", domain.PlatformFacebook)
	assert.True(t, res.Unavailable())
}

func TestAudio_TempFileRemoved(t *testing.T) {
	for name, tr := range map[string]*fakeTranscriber{
		"success": {text: "transcript"},
		"failure": {err: errors.New("whisper down")},
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			s := newStrategy(Config{
				Media:       &fakeMedia{data: []byte("voice-bytes")},
				Transcriber: tr,
				TempDir:     dir,
			})

			res := s.Audio(context.Background(), "m1")
			assert.Equal(t, []byte("voice-bytes"), tr.got)
			assert.NotEmpty(t, tr.path)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "temp audio must be removed")

			if tr.err == nil {
				assert.Equal(t, "transcript", res.Result.Text)
			} else {
				assert.True(t, res.Result.Empty())
			}
		})
	}
}

func TestAudio_UnconfiguredSkipsDownload(t *testing.T) {
	media := &fakeMedia{data: []byte("x")}
	res := newStrategy(Config{Media: media}).Audio(context.Background(), "m1")
	assert.True(t, res.Unavailable())
	assert.Equal(t, 0, media.calls)
}

func TestAudio_FetchFailure(t *testing.T) {
	s := newStrategy(Config{Media: &fakeMedia{err: errors.New("404")}, Transcriber: &fakeTranscriber{text: "x"}})
	res := s.Audio(context.Background(), "m1")
	assert.ErrorIs(t, res.Err(), domain.ErrEmptyResult)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, ResolverMedia, res.Attempts[0].Resolver)
}

func TestImage_UploadIndependentOfDescription(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	describer := &fakeDescriber{text: "a cat"}
	uploader := &fakeUploader{err: errors.New("quota")}
	s := newStrategy(Config{Media: &fakeMedia{data: png}, Describer: describer, Uploader: uploader, VisionMaxTokens: 256})

	res := s.Image(context.Background(), "m2")
	assert.Equal(t, "a cat", res.Result.Text)
	assert.Error(t, res.UploadErr)
	assert.Empty(t, res.MediaLink)
	assert.Equal(t, "image/png", describer.req.MimeType)
	assert.Equal(t, 256, describer.req.MaxTokens)
	assert.Equal(t, DefaultVisionInstruction, describer.req.Instruction)
	assert.Regexp(t, `^linenote-\d{8}-\d{6}\.png$`, uploader.name)

	uploader.err, uploader.link = nil, "https://drive.google.com/file/d/1/view"
	res = s.Image(context.Background(), "m2")
	assert.NoError(t, res.UploadErr)
	assert.Equal(t, "https://drive.google.com/file/d/1/view", res.MediaLink)
}

func TestImage_DescriptionFailsUploadStillRuns(t *testing.T) {
	uploader := &fakeUploader{link: "https://drive/x"}
	s := newStrategy(Config{Media: &fakeMedia{data: []byte{0xff, 0xd8, 0xff}}, Describer: &fakeDescriber{}, Uploader: uploader})

	res := s.Image(context.Background(), "m2")
	assert.True(t, res.Result.Empty())
	assert.Equal(t, "https://drive/x", res.MediaLink)
}

func TestImage_FetchFailureSkipsEverything(t *testing.T) {
	describer := &fakeDescriber{text: "x"}
	res := newStrategy(Config{Media: &fakeMedia{err: errors.New("gone")}, Describer: describer}).Image(context.Background(), "m2")
	assert.Equal(t, 0, describer.calls)
	assert.True(t, res.Result.Empty())
	assert.ErrorIs(t, res.UploadErr, domain.ErrUnavailable)
}

func TestImage_NoUploader(t *testing.T) {
	res := newStrategy(Config{Media: &fakeMedia{data: []byte("x")}, Describer: &fakeDescriber{text: "d"}}).Image(context.Background(), "m")
	assert.ErrorIs(t, res.UploadErr, domain.ErrUnavailable)
}

func TestCommandAndPlainText(t *testing.T) {
	s := newStrategy(Config{})
	assert.Equal(t, domain.ExtractionResult{Text: "arg", Source: domain.SourceCommand}, s.Command("arg").Result)
	assert.Equal(t, domain.SourcePlainText, s.PlainText("hi").Result.Source)
}
