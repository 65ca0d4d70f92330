package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"linenote/internal/domain"
	"linenote/internal/memory"
)

func notesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Browse the local note journal (knowledge.backend=sqlite)",
	}
	cmd.PersistentFlags().IntVarP(&limit, "limit", "n", 20, "maximum number of notes")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the most recent notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *memory.SQLiteStore) error {
				notes, err := store.ListNotes(ctx, limit)
				if err != nil {
					return err
				}
				printNotes(cmd.OutOrStdout(), notes)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "search [query]",
		Short: "Find notes whose text or digest contains query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *memory.SQLiteStore) error {
				notes, err := store.SearchNotes(ctx, strings.Join(args, " "), limit)
				if err != nil {
					return err
				}
				printNotes(cmd.OutOrStdout(), notes)
				return nil
			})
		},
	})

	return cmd
}

func withStore(fn func(context.Context, *memory.SQLiteStore) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Memory.Enabled {
		return fmt.Errorf("memory is disabled in config")
	}
	store, err := memory.NewSQLiteStore(cfg.Memory.DBPath, log)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(context.Background(), store)
}

func printNotes(w io.Writer, notes []domain.NoteRecord) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notes.")
		return
	}
	for _, n := range notes {
		fmt.Fprintf(w, "■ %s\n", n.Title)
		if n.SourceURL != "" {
			fmt.Fprintf(w, "  %s\n", n.SourceURL)
		}
		if n.Digest != "" {
			fmt.Fprintf(w, "  %s\n", preview(n.Digest, 160))
		} else {
			fmt.Fprintf(w, "  %s\n", preview(strings.Join(n.Segments, ""), 160))
		}
		fmt.Fprintln(w)
	}
}

func preview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
