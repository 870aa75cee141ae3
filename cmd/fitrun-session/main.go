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

	tea "github.com/charmbracelet/bubbletea"

	"github.com/meltforce/fitrun/internal/catalog"
	"github.com/meltforce/fitrun/internal/runner"
	"github.com/meltforce/fitrun/internal/session"
	"github.com/meltforce/fitrun/internal/tui"
	"github.com/meltforce/fitrun/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "fitrun server URL (e.g. https://fitrun.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("FITRUN_API_KEY"), "API key for recording completions")
	planID := flag.String("plan", "", "ID of the workout plan to run")
	list := flag.Bool("list", false, "list available plans and exit")
	catalogPath := flag.String("catalog", "", "catalog file to use when no server is given")
	stateDir := flag.String("state-dir", "", "directory for the outbox and log (default ~/.fitrun)")
	userID := flag.Int("user", 0, "user ID to record completions for (0 lets the server decide)")
	leadIn := flag.Int("lead-in", session.DefaultLeadIn, "countdown seconds before exercising starts or resumes")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("fitrun-session", Version)
		return
	}

	*serverURL = strings.TrimRight(*serverURL, "/")

	dir, err := resolveStateDir(*stateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := tea.LogToFile(filepath.Join(dir, "session.log"), "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("fitrun-session starting", "version", Version, "server", *serverURL)

	var client *upload.Client
	if *serverURL != "" {
		client = upload.NewClient(*serverURL, *apiKey)
	}

	plans, err := loadPlans(client, *catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *list {
		printPlans(plans)
		return
	}
	if *planID == "" {
		fmt.Fprintf(os.Stderr, "Usage: fitrun-session -plan <id> [-server <URL>] [-list]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	plan, ok := findPlan(plans, *planID)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown plan %q (use -list)\n", *planID)
		os.Exit(1)
	}

	outbox, err := upload.OpenOutbox(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer outbox.Close()

	var recorder runner.Recorder = outbox
	if client != nil {
		recorder = upload.NewBuffered(client, outbox, log)
		flushPending(outbox, client, log)
	}

	model, err := tui.New(plan, tui.Options{
		UserID:   *userID,
		LeadIn:   *leadIn,
		Recorder: recorder,
		Log:      log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: plan %s cannot be run: %v\n", plan.ID, err)
		os.Exit(1)
	}

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		log.Error("ui failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cw, ok := model.Completion(); ok {
		fmt.Printf("Completed %s in %s (~%d kcal)\n", cw.PlanName, tui.FormatClock(cw.TotalElapsedSec), cw.Calories)
		if err := model.RecordErr(); err != nil {
			fmt.Printf("Not delivered: %v\n", err)
		}
	}
}

func resolveStateDir(dir string) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".fitrun")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating state dir %s: %w", dir, err)
	}
	return dir, nil
}

func loadPlans(client *upload.Client, catalogPath string) ([]catalog.WorkoutPlan, error) {
	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return client.FetchPlans(ctx)
	}
	var (
		cat *catalog.Catalog
		err error
	)
	if catalogPath == "" {
		cat, err = catalog.Default()
	} else {
		cat, err = catalog.Load(catalogPath)
	}
	if err != nil {
		return nil, err
	}
	return cat.List(catalog.Filter{}), nil
}

func findPlan(plans []catalog.WorkoutPlan, id string) (catalog.WorkoutPlan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return catalog.WorkoutPlan{}, false
}

func printPlans(plans []catalog.WorkoutPlan) {
	for _, p := range plans {
		fmt.Printf("  %-28s %-10s %-12s %s  %s\n", p.ID, p.GoalType, p.Difficulty, tui.FormatClock(p.EstimatedSeconds()), p.Name)
	}
}

// flushPending retries completions left over from earlier offline runs.
func flushPending(outbox *upload.Outbox, client *upload.Client, log *slog.Logger) {
	n, err := outbox.Len()
	if err != nil || n == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	sent, err := outbox.Flush(ctx, client)
	if err != nil {
		log.Warn("outbox flush incomplete", "sent", sent, "pending", n, "error", err)
		return
	}
	log.Info("outbox flushed", "sent", sent)
}
