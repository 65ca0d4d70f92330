package extract

import (
	"context"
	"strings"

	"linenote/internal/domain"
)

// SocialPost runs the platform scraper once. Scrapers are not
// interchangeable, so there is no fallback.
func (s *Strategy) SocialPost(ctx context.Context, url string, platform domain.Platform) Resolution {
	base := domain.ExtractionResult{Source: domain.SourceSocialPost, Platform: platform, URL: url}

	var run func(context.Context) (string, error)
	if s.cfg.Scraper != nil {
		run = func(ctx context.Context) (string, error) {
			post, err := s.cfg.Scraper.ScrapePost(ctx, url, platform)
			if err != nil {
				return "", err
			}
			return formatPost(post), nil
		}
	}
	return s.runChain(ctx, base, resolver{name: ResolverApify, run: run})
}

// formatPost flattens a scraped post. A post without body text is empty
// even if it carries an author.
func formatPost(p *domain.SocialPost) string {
	if p == nil {
		return ""
	}
	body := strings.TrimSpace(p.Text)
	if body == "" {
		return ""
	}
	var header []string
	if p.Author != "" {
		header = append(header, "@"+strings.TrimPrefix(p.Author, "@"))
	}
	if p.Published != "" {
		header = append(header, p.Published)
	}
	if len(header) == 0 {
		return body
	}
	return strings.Join(header, " · ") + "\n\n" + body
}

// WebPage tries the crawler first and the local extractor second. Each is
// called at most once.
func (s *Strategy) WebPage(ctx context.Context, url string) Resolution {
	base := domain.ExtractionResult{Source: domain.SourceWebPage, URL: url}

	crawl := resolver{name: ResolverFirecrawl}
	if s.cfg.Crawler != nil {
		crawl.run = func(ctx context.Context) (string, error) {
			return s.cfg.Crawler.Crawl(ctx, url)
		}
	}
	local := resolver{name: ResolverHTML}
	if s.cfg.Fallback != nil {
		local.run = func(ctx context.Context) (string, error) {
			return s.cfg.Fallback.Extract(ctx, url)
		}
	}
	return s.runChain(ctx, base, crawl, local)
}
