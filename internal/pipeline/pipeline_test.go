package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"linenote/internal/domain"
	"linenote/internal/enrich"
	"linenote/internal/extract"
	"linenote/internal/knowledge"
	"linenote/internal/logger"
	"linenote/internal/reply"
	"linenote/internal/security"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSummarizer struct {
	out   string
	err   error
	calls int
}

func (f *fakeSummarizer) Summarize(context.Context, string) (string, error) {
	f.calls++
	return f.out, f.err
}

type fakeCrawler struct{ text string }

func (f fakeCrawler) Crawl(context.Context, string) (string, error) { return f.text, nil }

type fakeExtractor struct {
	text  string
	calls int
}

func (f *fakeExtractor) Extract(context.Context, string) (string, error) {
	f.calls++
	return f.text, nil
}

type fakeScraper struct{ post *domain.SocialPost }

func (f fakeScraper) ScrapePost(context.Context, string, domain.Platform) (*domain.SocialPost, error) {
	if f.post == nil {
		return nil, errors.New("actor run failed")
	}
	return f.post, nil
}

type fakeMedia struct{}

func (fakeMedia) FetchContent(context.Context, string) ([]byte, string, error) {
	return []byte{0xff, 0xd8, 0xff, 0xe0}, "image/jpeg", nil
}

type fakeTranscriber struct{ text string }

func (f fakeTranscriber) Transcribe(context.Context, domain.TranscribeRequest) (string, error) {
	return f.text, nil
}

type fakeDescriber struct{ text string }

func (f fakeDescriber) Describe(context.Context, domain.DescribeRequest) (string, error) {
	return f.text, nil
}

type fakeUploader struct{ err error }

func (f fakeUploader) Upload(context.Context, []byte, string, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://drive.google.com/file/d/abc/view", nil
}

type recordingWriter struct {
	notes []domain.NoteRecord
	err   error
}

func (w *recordingWriter) CreateNote(_ context.Context, n domain.NoteRecord) error {
	w.notes = append(w.notes, n)
	return w.err
}

type harness struct {
	summarizer *fakeSummarizer
	fallback   *fakeExtractor
	writer     *recordingWriter
	extract    extract.Config
	allowed    string
	noSummary  bool
}

func newHarness() *harness {
	return &harness{
		summarizer: &fakeSummarizer{out: "digest"},
		fallback:   &fakeExtractor{},
		writer:     &recordingWriter{},
	}
}

func (h *harness) build(t *testing.T) *Pipeline {
	t.Helper()
	log := logger.Discard()
	ec := h.extract
	ec.Logger = log
	if ec.Fallback == nil {
		ec.Fallback = h.fallback
	}
	ec.TempDir = t.TempDir()

	var summarizer domain.Summarizer
	if !h.noSummary {
		summarizer = h.summarizer
	}
	return New(Config{
		Guard:     security.NewGuard(h.allowed, log),
		Strategy:  extract.NewStrategy(ec),
		Enricher:  enrich.New(enrich.Config{Summarizer: summarizer, Logger: log}),
		Knowledge: knowledge.NewAdapter(knowledge.AdapterConfig{Writer: h.writer, Logger: log}),
		Logger:    log,
	})
}

func textEvent(s string) domain.InboundEvent {
	return domain.InboundEvent{EventID: "e1", ReplyToken: "r1", SenderID: "U1", Payload: domain.TextPayload{Text: s}}
}

func TestHandle_EchoPersistsNothing(t *testing.T) {
	h := newHarness()
	res := h.build(t).Handle(context.Background(), textEvent("just chatting"))

	assert.Equal(t, "just chatting", res.Reply)
	assert.False(t, res.Persisted)
	assert.Empty(t, h.writer.notes)
	assert.Zero(t, h.summarizer.calls)
}

func TestHandle_Denied(t *testing.T) {
	h := newHarness()
	h.allowed = "U-owner"
	res := h.build(t).Handle(context.Background(), textEvent("https://example.com"))

	assert.Equal(t, reply.MsgDenied, res.Reply)
	assert.Empty(t, h.writer.notes)
	assert.Zero(t, h.summarizer.calls)
	assert.Zero(t, h.fallback.calls)
}

func TestHandle_EmptyCommandShowsUsage(t *testing.T) {
	h := newHarness()
	res := h.build(t).Handle(context.Background(), textEvent("/a   "))

	assert.Equal(t, reply.MsgUsage, res.Reply)
	assert.Empty(t, h.writer.notes)
	assert.Zero(t, h.summarizer.calls)
}

func TestHandle_CommandPersistsNote(t *testing.T) {
	h := newHarness()
	res := h.build(t).Handle(context.Background(), textEvent("/a buy milk"))

	assert.True(t, res.Persisted)
	assert.Contains(t, res.Reply, "digest")

	want := domain.NoteRecord{NoteType: "Text", Segments: []string{"buy milk"}, Digest: "digest", SenderID: "U1"}
	opts := cmpopts.IgnoreFields(domain.NoteRecord{}, "Title", "CreatedAt")
	if diff := cmp.Diff([]domain.NoteRecord{want}, h.writer.notes, opts); diff != "" {
		t.Errorf("notes mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, strings.HasPrefix(h.writer.notes[0].Title, "Text "))
}

func TestHandle_WebFallbackOnce(t *testing.T) {
	h := newHarness()
	h.extract.Crawler = fakeCrawler{text: ""}
	h.fallback.text = "page body"
	res := h.build(t).Handle(context.Background(), textEvent("look https://example.com/a"))

	assert.Equal(t, 1, h.fallback.calls)
	assert.True(t, res.Persisted)
	assert.Equal(t, "https://example.com/a", h.writer.notes[0].SourceURL)
	assert.Equal(t, "Web", h.writer.notes[0].NoteType)
}

func TestHandle_WebTotalFailure(t *testing.T) {
	h := newHarness()
	h.extract.Crawler = fakeCrawler{}
	res := h.build(t).Handle(context.Background(), textEvent("https://example.com/a"))

	assert.Equal(t, 1, h.fallback.calls)
	assert.Equal(t, reply.MsgExtractFailed, res.Reply)
	assert.False(t, res.Persisted)
	assert.Empty(t, h.writer.notes)
	assert.Zero(t, h.summarizer.calls)
}

func TestHandle_NoSummarizerFallsBackToText(t *testing.T) {
	h := newHarness()
	h.noSummary = true
	h.fallback.text = "page body"
	res := h.build(t).Handle(context.Background(), textEvent("https://example.com/a"))

	assert.Contains(t, res.Reply, "page body")
	assert.True(t, res.Persisted, "notes without a digest are still saved")
	assert.Empty(t, h.writer.notes[0].Digest)
}

func TestHandle_PersistenceFailureKeepsReply(t *testing.T) {
	h := newHarness()
	h.writer.err = errors.New("notion unavailable")
	res := h.build(t).Handle(context.Background(), textEvent("/a remember this"))

	assert.False(t, res.Persisted)
	assert.Contains(t, res.Reply, "digest")
	assert.Len(t, h.writer.notes, 1, "write attempted exactly once")
}

func TestHandle_SocialPost(t *testing.T) {
	h := newHarness()
	h.extract.Scraper = fakeScraper{post: &domain.SocialPost{Author: "bob", Text: "thread body"}}
	res := h.build(t).Handle(context.Background(), textEvent("https://www.threads.com/@bob/post/1"))

	assert.True(t, res.Persisted)
	assert.Equal(t, "Threads", h.writer.notes[0].NoteType)
	assert.Equal(t, "https://www.threads.net/@bob/post/1", h.writer.notes[0].SourceURL)
	assert.Zero(t, h.fallback.calls, "social posts never use the web fallback")
}

func TestHandle_SocialFailure(t *testing.T) {
	h := newHarness()
	h.extract.Scraper = fakeScraper{}
	res := h.build(t).Handle(context.Background(), textEvent("https://www.instagram.com/p/1"))

	assert.Equal(t, reply.MsgSocialFailed, res.Reply)
	assert.Empty(t, h.writer.notes)
}

func TestHandle_Audio(t *testing.T) {
	h := newHarness()
	h.extract.Media = fakeMedia{}
	h.extract.Transcriber = fakeTranscriber{text: "call mom"}
	ev := domain.InboundEvent{SenderID: "U1", Payload: domain.AudioPayload{MessageID: "m1", Duration: 3 * time.Second}}
	res := h.build(t).Handle(context.Background(), ev)

	assert.Contains(t, res.Reply, "call mom")
	assert.Contains(t, res.Reply, "digest")
	assert.Equal(t, "Audio", h.writer.notes[0].NoteType)
}

func TestHandle_AudioUnconfigured(t *testing.T) {
	h := newHarness()
	h.extract.Media = fakeMedia{}
	res := h.build(t).Handle(context.Background(), domain.InboundEvent{Payload: domain.AudioPayload{MessageID: "m1"}})

	assert.Equal(t, reply.MsgTranscribeOff, res.Reply)
	assert.Empty(t, h.writer.notes)
}

func TestHandle_ImageUploadFailureStillPersists(t *testing.T) {
	h := newHarness()
	h.extract.Media = fakeMedia{}
	h.extract.Describer = fakeDescriber{text: "a receipt"}
	h.extract.Uploader = fakeUploader{err: errors.New("drive quota")}
	res := h.build(t).Handle(context.Background(), domain.InboundEvent{SenderID: "U1", Payload: domain.ImagePayload{MessageID: "m2"}})

	assert.Contains(t, res.Reply, "a receipt")
	assert.True(t, res.Persisted)
	assert.Empty(t, h.writer.notes[0].MediaLink)
	assert.Zero(t, h.summarizer.calls, "image descriptions are not summarized")
}

func TestHandle_ImageWithLink(t *testing.T) {
	h := newHarness()
	h.extract.Media = fakeMedia{}
	h.extract.Describer = fakeDescriber{text: "a receipt"}
	h.extract.Uploader = fakeUploader{}
	res := h.build(t).Handle(context.Background(), domain.InboundEvent{Payload: domain.ImagePayload{MessageID: "m2"}})

	assert.Contains(t, res.Reply, "https://drive.google.com/file/d/abc/view")
	assert.Equal(t, "https://drive.google.com/file/d/abc/view", h.writer.notes[0].MediaLink)
}
