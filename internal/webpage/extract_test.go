package webpage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linenote/internal/logger"
)

const articlePage = `<!doctype html>
<html><head><title>Go Notes</title><style>body{}</style></head>
<body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<article>
  <h2>Section</h2>
  <p>Read the <a href="/docs/intro">intro</a> first.</p>
  <script>track()</script>
  <!-- comment -->
</article>
<footer>Copyright</footer>
</body></html>`

func TestToMarkdown_PrefersArticle(t *testing.T) {
	md, err := ToMarkdown(articlePage, "https://example.com/post/1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(md, "# Go Notes\n\n"), md)
	assert.Contains(t, md, "## Section")
	assert.Contains(t, md, "https://example.com/docs/intro")
	assert.NotContains(t, md, "Home")
	assert.NotContains(t, md, "Copyright")
	assert.NotContains(t, md, "track()")
	assert.NotContains(t, md, "comment")
}

func TestToMarkdown_FallsBackToBody(t *testing.T) {
	md, err := ToMarkdown(`<html><body><p>plain body</p></body></html>`, "")
	require.NoError(t, err)
	assert.Equal(t, "plain body", md)
}

func TestToMarkdown_EmptyPage(t *testing.T) {
	md, err := ToMarkdown(`<html><head><title>Only title</title></head><body><script>x()</script></body></html>`, "")
	require.NoError(t, err)
	assert.Equal(t, "", md, "a title alone is not content")
}

type stubFetcher struct {
	page Page
	err  error
}

func (s stubFetcher) Fetch(context.Context, string) (Page, error) { return s.page, s.err }

func TestExtractor_MaxChars(t *testing.T) {
	e := NewExtractor(ExtractorConfig{
		Fetcher:  stubFetcher{page: Page{HTML: "<p>" + strings.Repeat("字", 100) + "</p>"}},
		MaxChars: 10,
		Logger:   logger.Discard(),
	})
	text, err := e.Extract(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, 10, utf8.RuneCountInString(text))
}

func TestExtractor_FetchError(t *testing.T) {
	e := NewExtractor(ExtractorConfig{Fetcher: stubFetcher{err: errors.New("timeout")}, Logger: logger.Discard()})
	_, err := e.Extract(context.Background(), "https://example.com")
	assert.Error(t, err)
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/new", http.StatusFound)
		case "/new":
			assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<p>hi</p>"))
		case "/pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPFetcherConfig{Logger: logger.Discard()})

	page, err := f.Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/new", page.URL)
	assert.Equal(t, "<p>hi</p>", page.HTML)

	_, err = f.Fetch(context.Background(), srv.URL+"/pdf")
	assert.ErrorContains(t, err, "unsupported content type")

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "404")
}
