package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"linenote/internal/memory"
)

const (
	ledgerRetention = 24 * time.Hour
	pruneInterval   = time.Hour
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the LINE webhook server",
		Long:  "Starts the webhook endpoint and handles events until interrupted. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer a.Close()

	log.Info("linenote starting",
		"version", version,
		"knowledge", cfg.Knowledge.Backend,
		"renderer", cfg.Scrape.Renderer,
		"ledger", a.store != nil,
		"collaborators", a.providers.Status(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.server.Run(gctx) })
	if a.store != nil {
		g.Go(func() error {
			pruneLedger(gctx, a.store, log)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// pruneLedger trims old processed-event ids until ctx is done.
func pruneLedger(ctx context.Context, store *memory.SQLiteStore, log *slog.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PruneEvents(ctx, ledgerRetention)
			if err != nil {
				log.Warn("ledger prune failed", "err", err)
				continue
			}
			if n > 0 {
				log.Debug("ledger pruned", "removed", n)
			}
		}
	}
}
