package webpage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var multiNewlinePattern = regexp.MustCompile(`\n{3,}`)

// Extractor implements domain.HTMLExtractor.
type Extractor struct {
	fetcher  Fetcher
	maxChars int
	logger   *slog.Logger
}

type ExtractorConfig struct {
	Fetcher  Fetcher
	MaxChars int // 0 keeps the whole page
	Logger   *slog.Logger
}

func NewExtractor(cfg ExtractorConfig) *Extractor {
	return &Extractor{fetcher: cfg.Fetcher, maxChars: cfg.MaxChars, logger: cfg.Logger}
}

// Extract fetches pageURL and returns its main content as markdown.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	page, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	text, err := ToMarkdown(page.HTML, page.URL)
	if err != nil {
		return "", err
	}
	if e.maxChars > 0 && utf8.RuneCountInString(text) > e.maxChars {
		text = string([]rune(text)[:e.maxChars])
	}
	e.logger.Debug("page extracted", "url", page.URL, "chars", utf8.RuneCountInString(text))
	return text, nil
}

// noise is removed before conversion.
var noise = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Iframe: true,
	atom.Svg: true, atom.Nav: true, atom.Footer: true, atom.Header: true,
	atom.Aside: true, atom.Form: true,
}

// ToMarkdown converts the main content of an HTML document. It prefers
// <article>, then <main>, then <body>. The page title becomes a heading.
func ToMarkdown(document, pageURL string) (string, error) {
	doc, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(textOf(find(doc, atom.Title)))
	root := find(doc, atom.Article)
	if root == nil {
		root = find(doc, atom.Main)
	}
	if root == nil {
		root = find(doc, atom.Body)
	}
	if root == nil {
		root = doc
	}
	strip(root)

	var opts []converter.ConvertOptionFunc
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		opts = append(opts, converter.WithDomain(u.Scheme+"://"+u.Host))
	}
	md, err := htmltomarkdown.ConvertNode(root, opts...)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}

	body := strings.TrimSpace(multiNewlinePattern.ReplaceAllString(string(md), "\n\n"))
	if body == "" {
		return "", nil
	}
	if title != "" && !strings.HasPrefix(body, "# ") {
		body = "# " + title + "\n\n" + body
	}
	return body, nil
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}

func strip(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && noise[c.DataAtom] {
			n.RemoveChild(c)
		} else if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			strip(c)
		}
		c = next
	}
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
