package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meltforce/fitrun/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "fitrun server URL (e.g. https://fitrun.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("FITRUN_API_KEY"), "API key for recording completions")
	stateDir := flag.String("state-dir", "", "directory holding the outbox (default ~/.fitrun)")
	dryRun := flag.Bool("dry-run", false, "list queued completions without sending them")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("fitrun-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Usage: fitrun-upload -server <URL> [-api-key KEY] [-state-dir DIR] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	*serverURL = strings.TrimRight(*serverURL, "/")

	dir := *stateDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(home, ".fitrun")
	}

	outbox, err := upload.OpenOutbox(dir)
	if err != nil {
		log.Error("failed to open outbox", "error", err)
		os.Exit(1)
	}
	defer outbox.Close()

	pending, err := outbox.Pending()
	if err != nil {
		log.Error("failed to read outbox", "error", err)
		os.Exit(1)
	}
	log.Info("outbox loaded", "path", dir, "pending", len(pending))

	if *dryRun {
		for _, c := range pending {
			fmt.Printf("  %s  %-28s %s\n", c.ID, c.PlanID, c.CompletedAt.Format(time.RFC3339))
		}
		return
	}
	if len(pending) == 0 {
		log.Info("nothing to upload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sent, err := outbox.Flush(ctx, upload.NewClient(*serverURL, *apiKey))
	left, _ := outbox.Len()
	if err != nil {
		log.Error("upload incomplete", "sent", sent, "pending", left, "error", err)
		os.Exit(1)
	}
	log.Info("upload complete", "sent", sent, "pending", left)
}
