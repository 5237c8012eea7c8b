package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/claude/strengthjourneys/internal/ingest/gsheet"
	"github.com/claude/strengthjourneys/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "Strength Journeys server URL (e.g. https://strengthjourneys.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("SJ_AUTH_API_KEY"), "server API key (default $SJ_AUTH_API_KEY)")
	sheetID := flag.String("sheet", "", "Google spreadsheet ID to sync")
	readRange := flag.String("range", gsheet.DefaultRange, "A1 range to read from the sheet")
	csvPath := flag.String("csv", "", "CSV export to sync instead of a Google Sheet")
	credsFile := flag.String("credentials", os.Getenv("SJ_SHEETS_CREDENTIALS_FILE"), "Google service account JSON file")
	sheetsKey := flag.String("sheets-api-key", os.Getenv("SJ_SHEETS_API_KEY"), "Google API key for public sheets")
	stateDir := flag.String("state-dir", "", "state database directory (default ~/.strengthjourneys-sync)")
	interval := flag.Duration("interval", 0, "keep running and sync every interval (e.g. 15m)")
	dryRun := flag.Bool("dry-run", false, "parse rows but don't send to server")
	force := flag.Bool("force", false, "send even if the sheet is unchanged since the last sync")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("sj-sync", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if (*sheetID == "") == (*csvPath == "") {
		fmt.Fprintf(os.Stderr, "Usage: sj-sync -server <URL> (-sheet <ID> | -csv <file>) [-interval 15m] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var src upload.Source
	if *csvPath != "" {
		src = upload.CSVSource{Path: *csvPath}
	} else {
		fetcher, err := gsheet.NewSheetsFetcher(ctx, gsheet.Credentials{
			CredentialsFile: *credsFile,
			APIKey:          *sheetsKey,
		})
		if err != nil {
			log.Error("failed to create sheets client", "error", err)
			os.Exit(1)
		}
		src = upload.SheetSource{Fetcher: fetcher, SpreadsheetID: *sheetID, Range: *readRange}
	}

	// Open state database
	dir := *stateDir
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(homeDir, ".strengthjourneys-sync")
	}
	state, err := upload.OpenStateDB(dir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	if last, err := state.Last(src.Name()); err == nil && last != nil {
		log.Info("last sync", "source", src.Name(), "rows", last.Rows, "at", last.SyncedAt.Format(time.RFC3339))
	}

	if *dryRun {
		log.Info("DRY RUN mode: rows will be parsed but not sent")
	}

	uploader := upload.New(upload.NewClient(*serverURL, *apiKey), state, *dryRun, *force, log)
	if *interval > 0 {
		log.Info("watching", "source", src.Name(), "interval", *interval)
		err = uploader.Watch(ctx, src, *interval)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	} else {
		err = uploader.Run(ctx, src)
	}

	printStats(uploader.Stats())
	if err != nil {
		log.Error("sync failed", "error", err)
		os.Exit(1)
	}
}

func printStats(stats upload.Stats) {
	fmt.Println()
	fmt.Println("=== Sync Summary ===")
	fmt.Printf("  Runs:             %d\n", stats.Runs)
	fmt.Printf("  Uploaded:         %d\n", stats.Uploaded)
	fmt.Printf("  Skipped:          %d (unchanged)\n", stats.Skipped)
	fmt.Printf("  Errored:          %d\n", stats.Errored)
	fmt.Println()
	fmt.Printf("  Rows sent:        %d\n", stats.RowsSent)
	fmt.Printf("  Records parsed:   %d\n", stats.RecordsParsed)
	fmt.Printf("  Rows dropped:     %d\n", stats.RowsDropped)
	fmt.Printf("  Records inserted: %d\n", stats.RecordsInserted)
	fmt.Println()
}
