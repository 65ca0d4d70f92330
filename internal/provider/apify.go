package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"linenote/internal/domain"
)

const apifyDefaultBase = "https://api.apify.com"

type ApifyConfig struct {
	Token   string
	Actors  map[domain.Platform]string // actor id per platform, e.g. "apify/threads-scraper"
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
}

// Apify scrapes social posts by running an Apify actor synchronously and
// reading its dataset.
type Apify struct {
	token   string
	actors  map[domain.Platform]string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewApify(cfg ApifyConfig) *Apify {
	if cfg.BaseURL == "" {
		cfg.BaseURL = apifyDefaultBase
	}
	if cfg.Client == nil {
		cfg.Client = SharedHTTPClient(0)
	}
	return &Apify{
		token:   cfg.Token,
		actors:  cfg.Actors,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
}

// actorInput builds the run input. The platform actors disagree on the
// field that carries the target URL.
func actorInput(platform domain.Platform, postURL string) map[string]any {
	switch platform {
	case domain.PlatformInstagram:
		return map[string]any{"directUrls": []string{postURL}, "resultsType": "posts", "resultsLimit": 1}
	case domain.PlatformFacebook:
		return map[string]any{"startUrls": []map[string]string{{"url": postURL}}, "resultsLimit": 1}
	default:
		return map[string]any{"startUrls": []map[string]string{{"url": postURL}}, "maxItems": 1}
	}
}

// ScrapePost runs the actor configured for platform and returns the first
// dataset item.
func (a *Apify) ScrapePost(ctx context.Context, postURL string, platform domain.Platform) (*domain.SocialPost, error) {
	actor := a.actors[platform]
	if a.token == "" || actor == "" {
		return nil, fmt.Errorf("apify %s: %w", platform, domain.ErrUnavailable)
	}

	body, err := json.Marshal(actorInput(platform, postURL))
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items?token=%s",
		a.baseURL, strings.ReplaceAll(actor, "/", "~"), url.QueryEscape(a.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("apify %d: %s", resp.StatusCode, string(respBody))
	}

	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("apify %s: %w", actor, domain.ErrEmptyResult)
	}

	post := postFromItem(items[0])
	if post.URL == "" {
		post.URL = postURL
	}
	a.logger.Debug("apify post scraped", "actor", actor, "author", post.Author, "text_len", len(post.Text))
	return post, nil
}

// Field names differ per actor; the first non-empty match wins.
var (
	textKeys      = []string{"text", "caption", "postText", "content", "message"}
	authorKeys    = []string{"ownerUsername", "username", "authorName", "author", "user.username", "user.name"}
	publishedKeys = []string{"timestamp", "publishedAt", "time", "date", "takenAt"}
	urlKeys       = []string{"url", "postUrl", "permalink"}
)

func postFromItem(item map[string]any) *domain.SocialPost {
	return &domain.SocialPost{
		Text:      firstString(item, textKeys),
		Author:    firstString(item, authorKeys),
		Published: firstString(item, publishedKeys),
		URL:       firstString(item, urlKeys),
	}
}

// firstString looks keys up in item. A dotted key descends into nested
// objects.
func firstString(item map[string]any, keys []string) string {
	for _, key := range keys {
		var v any = item
		for _, part := range strings.Split(key, ".") {
			m, ok := v.(map[string]any)
			if !ok {
				v = nil
				break
			}
			v = m[part]
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
