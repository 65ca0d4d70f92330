package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"linenote/internal/config"
	"linenote/internal/enrich"
	"linenote/internal/logger"
	"linenote/internal/memory"
	"linenote/internal/provider"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your linenote installation",
		Long: `Verifies that the configuration, collaborators, database and listen
port are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("linenote doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed, failed, warned := 0, 0, 0

			// 1. Config file exists. A missing file is fine when the
			// environment carries the settings.
			if _, err := os.Stat(cfgPath); err != nil {
				printWarn("Config file", fmt.Sprintf("not found at %s (environment only)", cfgPath))
				warned++
			} else {
				printPass("Config file", cfgPath)
				passed++
			}

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				fmt.Printf("\nRun 'linenote init' to create a default configuration.\n")
				return fmt.Errorf("config invalid")
			}
			printPass("Config validation", "valid")
			passed++

			// 3. Collaborators. Every one is optional; missing ones degrade replies.
			set, err := provider.Build(context.Background(), cfg.Providers, logger.Discard())
			if err != nil {
				printFail("Providers", err.Error())
				failed++
			} else {
				status := set.Status()
				names := make([]string, 0, len(status))
				for name := range status {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					if status[name] {
						printPass("Capability: "+name, "configured")
						passed++
					} else {
						printWarn("Capability: "+name, "not configured")
						warned++
					}
				}
			}

			// 4. Prompt templates
			if cfg.General.PromptsFile != "" {
				if _, err := enrich.LoadTemplates(cfg.General.PromptsFile); err != nil {
					printFail("Prompt file", err.Error())
					failed++
				} else {
					printPass("Prompt file", cfg.General.PromptsFile)
					passed++
				}
			}

			// 5. Knowledge backend
			switch cfg.Knowledge.Backend {
			case "notion":
				if cfg.Knowledge.Notion.APIKey == "" || cfg.Knowledge.Notion.DatabaseID == "" {
					printWarn("Knowledge: notion", "apiKey or databaseId missing; notes will not be saved")
					warned++
				} else {
					printPass("Knowledge: notion", cfg.Knowledge.Notion.DatabaseID)
					passed++
				}
			case "none":
				printWarn("Knowledge", "backend is none; notes will not be saved")
				warned++
			default:
				printPass("Knowledge: "+cfg.Knowledge.Backend, "local journal")
				passed++
			}

			// 6. Database writable
			if cfg.Memory.Enabled {
				if err := checkDatabase(cfg.Memory.DBPath); err != nil {
					printFail("Database", err.Error())
					failed++
				} else {
					printPass("Database", cfg.Memory.DBPath)
					passed++
				}
			} else {
				printWarn("Database", "disabled; redeliveries cannot be detected")
				warned++
			}

			// 7. Drive uploads
			if cfg.Storage.Drive.CredentialsFile == "" {
				printWarn("Drive", "no credentials file; images are not uploaded")
				warned++
			} else if _, err := os.Stat(cfg.Storage.Drive.CredentialsFile); err != nil {
				printFail("Drive", fmt.Sprintf("credentials file: %v", err))
				failed++
			} else {
				printPass("Drive", "folder "+cfg.Storage.Drive.FolderID)
				passed++
			}

			// 8. Listen port
			if err := checkPort(cfg.Server.Addr()); err != nil {
				printWarn("Listen address", fmt.Sprintf("%s may be in use: %v", cfg.Server.Addr(), err))
				warned++
			} else {
				printPass("Listen address", cfg.Server.Addr()+" available")
				passed++
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running linenote.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nlinenote will run with reduced capabilities.\n")
			} else {
				fmt.Printf("\nAll checks passed! linenote is ready to serve.\n")
			}
			return nil
		},
	}
}

// checkDatabase opens the real store, which also applies migrations.
func checkDatabase(dbPath string) error {
	store, err := memory.NewSQLiteStore(dbPath, logger.Discard())
	if err != nil {
		return err
	}
	defer store.Close()

	v, err := store.SchemaVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v < memory.SchemaVersion {
		return fmt.Errorf("schema version %d, want %d", v, memory.SchemaVersion)
	}
	return nil
}

func checkPort(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-22s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-22s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-22s %s\n", check, detail)
}
