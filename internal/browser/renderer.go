// Package browser renders pages in headless Chrome for the fallback
// extractor, for sites that build their content with JavaScript.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"linenote/internal/webpage"
)

// settleDelay gives client-side rendering a moment after the body is ready.
const settleDelay = 1500 * time.Millisecond

// Renderer implements webpage.Fetcher with a Chrome profile on disk, so
// cookies from a manual Login are reused.
type Renderer struct {
	profileDir string
	userAgent  string
	headless   bool
	logger     *slog.Logger
}

type RendererConfig struct {
	ProfileDir string // Chrome user data directory (persists cookies)
	UserAgent  string
	Headless   bool
	Logger     *slog.Logger
}

// DefaultProfileDir is ~/.linenote/chrome-profile.
func DefaultProfileDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".linenote", "chrome-profile")
}

func NewRenderer(cfg RendererConfig) *Renderer {
	if cfg.ProfileDir == "" {
		cfg.ProfileDir = DefaultProfileDir()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = webpage.DefaultUserAgent
	}
	return &Renderer{
		profileDir: cfg.ProfileDir,
		userAgent:  cfg.UserAgent,
		headless:   cfg.Headless,
		logger:     cfg.Logger,
	}
}

func (r *Renderer) allocatorOptions(headless bool) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(r.profileDir),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.UserAgent(r.userAgent),
	)
	if headless {
		return append(opts, chromedp.Headless)
	}
	return append(opts, chromedp.Flag("headless", false))
}

// newContext starts a Chrome instance. The caller must call cancel.
func (r *Renderer) newContext(parent context.Context, headless bool) (context.Context, context.CancelFunc) {
	if err := os.MkdirAll(r.profileDir, 0o755); err != nil {
		r.logger.Error("failed to create profile dir", "dir", r.profileDir, "err", err)
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, r.allocatorOptions(headless)...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	return taskCtx, func() {
		taskCancel()
		allocCancel()
	}
}

// Fetch navigates to url and returns the rendered document.
func (r *Renderer) Fetch(ctx context.Context, url string) (webpage.Page, error) {
	taskCtx, cancel := r.newContext(ctx, r.headless)
	defer cancel()

	var (
		document string
		finalURL string
	)
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &document, chromedp.ByQuery),
	)
	if err != nil {
		return webpage.Page{}, fmt.Errorf("render %s: %w", url, err)
	}
	r.logger.Debug("page rendered", "url", finalURL, "bytes", len(document))
	return webpage.Page{URL: finalURL, HTML: document}, nil
}

// Login opens a visible browser so the user can sign in to sites the
// extractor should read. It blocks until ctx is cancelled; cookies stay in
// the profile directory.
func (r *Renderer) Login(ctx context.Context, url string) error {
	r.logger.Info("opening browser for login", "url", url, "profile", r.profileDir)

	taskCtx, cancel := r.newContext(ctx, false)
	defer cancel()

	if err := chromedp.Run(taskCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to login page: %w", err)
	}
	r.logger.Info("browser opened. Log in, then press Ctrl+C.")

	<-ctx.Done()
	r.logger.Info("login session saved", "profile", r.profileDir)
	return nil
}
