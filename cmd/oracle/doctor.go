package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/oracle-destiny/internal/archive"
	"github.com/Zuo-Peng/oracle-destiny/internal/chart"
	"github.com/Zuo-Peng/oracle-destiny/internal/config"
	"github.com/Zuo-Peng/oracle-destiny/internal/oracle"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify config, backend reachability and archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			fmt.Println("=== Config ===")
			fmt.Printf("  Server:  %s\n", cfg.ServerURL)
			fmt.Printf("  Timeout: %s\n", cfg.RequestTimeout)
			fmt.Printf("  Policy:  %s\n", cfg.Policy())
			fmt.Printf("  Log:     %s\n", cfg.LogPath)

			// check backend
			fmt.Println("\n=== Backend ===")
			ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
			defer cancel()
			checkHealth(ctx, cfg.ServerURL+"/health")

			start := time.Now()
			out := oracle.NewClient(cfg.ServerURL, oracle.WithTimeout(cfg.RequestTimeout)).
				RequestChart(ctx, chart.DefaultQuery())
			if out.UsedFallback {
				fmt.Printf("  /api/chart: FAILED (%v)\n", out.Err)
			} else {
				fmt.Printf("  /api/chart: OK (%d planets, %s)\n", len(out.Result.Planets), time.Since(start).Round(time.Millisecond))
			}

			// check archive
			fmt.Println("\n=== Archive ===")
			if !cfg.Archive {
				fmt.Println("  Status: DISABLED")
				return nil
			}
			fmt.Printf("  Path: %s\n", cfg.DBPath)
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (created on first conversation)")
				return nil
			}

			db, err := archive.OpenDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			transcripts, err := db.TranscriptCount()
			if err != nil {
				return fmt.Errorf("count transcripts: %w", err)
			}
			turns, err := db.TurnCount()
			if err != nil {
				return fmt.Errorf("count turns: %w", err)
			}
			fmt.Printf("  Conversations: %d\n", transcripts)
			fmt.Printf("  Turns:         %d\n", turns)

			// check FTS5
			var ftsCount int
			err = db.Raw().QueryRow("SELECT COUNT(*) FROM turns_fts").Scan(&ftsCount)
			if err != nil {
				fmt.Printf("  FTS5 error: %v\n", err)
			} else if ftsCount == turns {
				fmt.Println("  FTS5: OK (synced)")
			} else {
				fmt.Printf("  FTS5: MISMATCH (turns=%d, fts=%d)\n", turns, ftsCount)
			}

			if info, err := os.Stat(cfg.DBPath); err == nil {
				sizeKB := float64(info.Size()) / 1024
				fmt.Printf("\n=== DB Size: %.1f KB ===\n", sizeKB)
			}
			return nil
		},
	}
}

func checkHealth(ctx context.Context, url string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		fmt.Printf("  /health: %v\n", err)
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("  /health: UNREACHABLE (%v)\n", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		fmt.Println("  /health: OK")
	} else {
		fmt.Printf("  /health: status %d (not every backend has one)\n", resp.StatusCode)
	}
}
