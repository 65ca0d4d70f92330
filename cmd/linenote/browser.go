package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"linenote/internal/browser"
)

func browserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browser",
		Short: "Manage the Chrome profile used by scrape.renderer=browser",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "login [url]",
		Short: "Open a visible browser to sign in to a site",
		Long:  "Opens Chrome with the scraper's profile so you can log in. Cookies are saved for later headless fetches. Press Ctrl+C when done.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r := browser.NewRenderer(browser.RendererConfig{
				ProfileDir: cfg.Scrape.ProfileDir,
				UserAgent:  cfg.Scrape.UserAgent,
				Logger:     log,
			})
			return r.Login(ctx, args[0])
		},
	})

	return cmd
}
