package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linenote/internal/config"
	"linenote/internal/domain"
	"linenote/internal/logger"
)

func TestApifyScrapePost(t *testing.T) {
	var gotPath, gotToken string
	var gotInput map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("token")
		_ = json.NewDecoder(r.Body).Decode(&gotInput)
		_, _ = w.Write([]byte(`[{"text":"  hello threads  ","user":{"username":"bob"},"timestamp":"2026-10-01T00:00:00Z"}]`))
	}))
	defer srv.Close()

	a := NewApify(ApifyConfig{
		Token:   "tok",
		Actors:  map[domain.Platform]string{domain.PlatformThreads: "apify/threads-scraper"},
		BaseURL: srv.URL,
		Logger:  logger.Discard(),
	})
	post, err := a.ScrapePost(context.Background(), "https://www.threads.net/@bob/post/1", domain.PlatformThreads)
	require.NoError(t, err)

	assert.Equal(t, "/v2/acts/apify~threads-scraper/run-sync-get-dataset-items", gotPath)
	assert.Equal(t, "tok", gotToken)
	assert.Contains(t, gotInput, "startUrls")
	assert.Equal(t, "hello threads", post.Text)
	assert.Equal(t, "bob", post.Author)
	assert.Equal(t, "2026-10-01T00:00:00Z", post.Published)
	assert.Equal(t, "https://www.threads.net/@bob/post/1", post.URL)
}

func TestApifyScrapePost_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "broken") {
			http.Error(w, "actor failed", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	a := NewApify(ApifyConfig{
		Token: "tok",
		Actors: map[domain.Platform]string{
			domain.PlatformInstagram: "apify/empty",
			domain.PlatformFacebook:  "apify/broken",
		},
		BaseURL: srv.URL,
		Logger:  logger.Discard(),
	})

	_, err := a.ScrapePost(context.Background(), "u", domain.PlatformInstagram)
	assert.ErrorIs(t, err, domain.ErrEmptyResult)

	_, err = a.ScrapePost(context.Background(), "u", domain.PlatformFacebook)
	assert.ErrorContains(t, err, "400")

	_, err = a.ScrapePost(context.Background(), "u", domain.PlatformThreads)
	assert.ErrorIs(t, err, domain.ErrUnavailable, "no actor configured for threads")
}

func TestActorInput(t *testing.T) {
	assert.Contains(t, actorInput(domain.PlatformInstagram, "u"), "directUrls")
	assert.Contains(t, actorInput(domain.PlatformFacebook, "u"), "startUrls")
}

func TestFirstString(t *testing.T) {
	item := map[string]any{"caption": "c", "user": map[string]any{"name": "n"}, "text": "  "}
	assert.Equal(t, "c", firstString(item, textKeys))
	assert.Equal(t, "n", firstString(item, authorKeys))
	assert.Equal(t, "", firstString(item, urlKeys))
}

func TestFirecrawlCrawl(t *testing.T) {
	var got firecrawlRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"# Title\n\nBody","metadata":{"title":"Title"}}}`))
	}))
	defer srv.Close()

	f := NewFirecrawl(FirecrawlConfig{APIKey: "fc-key", BaseURL: srv.URL, Logger: logger.Discard()})
	text, err := f.Crawl(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody", text)
	assert.Equal(t, []string{"markdown"}, got.Formats)
	assert.True(t, got.OnlyMainContent)
}

func TestFirecrawlCrawl_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer bad" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error":"blocked"}`))
	}))
	defer srv.Close()

	_, err := NewFirecrawl(FirecrawlConfig{APIKey: "bad", BaseURL: srv.URL, Logger: logger.Discard()}).Crawl(context.Background(), "u")
	assert.ErrorContains(t, err, "401")

	_, err = NewFirecrawl(FirecrawlConfig{APIKey: "ok", BaseURL: srv.URL, Logger: logger.Discard()}).Crawl(context.Background(), "u")
	assert.ErrorContains(t, err, "blocked")

	_, err = NewFirecrawl(FirecrawlConfig{Logger: logger.Discard()}).Crawl(context.Background(), "u")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestWhisperTranscribe(t *testing.T) {
	var fields map[string]string
	var fileName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/audio/transcriptions"), r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		fields = map[string]string{
			"model":    r.FormValue("model"),
			"language": r.FormValue("language"),
			"prompt":   r.FormValue("prompt"),
		}
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		fileName = hdr.Filename
		data, _ := io.ReadAll(f)
		assert.Equal(t, "voice-bytes", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":" 你好 "}`))
	}))
	defer srv.Close()

	p := NewWhisperProvider(WhisperConfig{APIBase: srv.URL + "/v1", APIKey: "sk", Logger: logger.Discard()})
	text, err := p.Transcribe(context.Background(), domain.TranscribeRequest{
		Audio:    strings.NewReader("voice-bytes"),
		Filename: "voice.m4a",
		Language: "zh",
		Prompt:   "筆記",
	})
	require.NoError(t, err)
	assert.Equal(t, "你好", text)
	assert.Equal(t, "voice.m4a", fileName)
	assert.Equal(t, map[string]string{"model": "whisper-1", "language": "zh", "prompt": "筆記"}, fields)
}

func TestGeminiSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/test-model:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"  summary  "}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), GeminiConfig{APIKey: "k", Model: "test-model", BaseURL: srv.URL, Logger: logger.Discard()})
	require.NoError(t, err)

	out, err := g.Summarize(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "summary", out)

	desc, err := g.Describe(context.Background(), domain.DescribeRequest{Image: []byte{1}, MimeType: "image/jpeg", Instruction: "describe", MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "summary", desc)
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{Logger: logger.Discard()})
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	cfg := config.Defaults().Providers

	empty, err := Build(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	for name, ok := range empty.Status() {
		assert.False(t, ok, name)
	}

	cfg.Gemini.APIKey = "g"
	cfg.OpenAI.APIKey = "o"
	cfg.Apify.Token = "a"
	cfg.Firecrawl.APIKey = "f"
	full, err := Build(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	for name, ok := range full.Status() {
		assert.True(t, ok, name)
	}
}
