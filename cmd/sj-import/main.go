package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/claude/strengthjourneys/internal/config"
	"github.com/claude/strengthjourneys/internal/ingest"
	"github.com/claude/strengthjourneys/internal/ingest/alpha"
	"github.com/claude/strengthjourneys/internal/ingest/gsheet"
	"github.com/claude/strengthjourneys/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	csvPath := flag.String("file", "", "path to a CSV export of the lifting sheet (required)")
	format := flag.String("format", "sheet", "export format: sheet or alpha (Alpha Progression)")
	login := flag.String("user", "local", "login of the user to import for")
	dryRun := flag.Bool("dry-run", false, "parse and report counts without writing to the database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *csvPath == "" || (*format != "sheet" && *format != "alpha") {
		fmt.Fprintf(os.Stderr, "Usage: sj-import -config config.yaml -file lifts.csv [-format sheet|alpha] [-user login] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
		if err := dryRunReport(log, *format, *csvPath); err != nil {
			log.Error("parse failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	uid, err := db.GetOrCreateUser(ctx, *login, *login)
	if err != nil {
		log.Error("failed to resolve user", "login", *login, "error", err)
		os.Exit(1)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Error("failed to open CSV", "path", *csvPath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	start := time.Now()
	source := ingest.SourceCSV
	var result *ingest.Result
	if *format == "alpha" {
		source = ingest.SourceAlpha
		result, err = alpha.NewProvider(db, log).IngestAlpha(ctx, f, uid)
	} else {
		result, err = gsheet.NewProvider(db, nil, log).IngestCSV(ctx, f, uid)
	}
	durationMs := int(time.Since(start).Milliseconds())
	logImport(ctx, log, db, uid, source, *csvPath, result, err, durationMs)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}

	printResult(log, result)
	log.Info("import complete", "user_id", uid)
}

func dryRunReport(log *slog.Logger, format, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if format == "alpha" {
		records, stats, err := alpha.Parse(f)
		if err != nil {
			return err
		}
		log.Info("parse stats",
			"sessions", stats.Sessions,
			"sets", stats.Sets,
			"records", len(records),
			"warmups", stats.Warmups,
			"bodyweight", stats.Bodyweight,
			"dropped", stats.Dropped,
		)
		return nil
	}

	records, stats, err := gsheet.ParseCSV(f)
	if err != nil {
		return err
	}
	first, last := "", ""
	if len(records) > 0 {
		first, last = records[0].Date, records[len(records)-1].Date
	}
	log.Info("parse stats",
		"rows_read", stats.RowsRead,
		"records", len(records),
		"goals", stats.Goals,
		"dropped", stats.Dropped,
		"first_date", first,
		"last_date", last,
	)
	return nil
}

// logImport records the CLI import in import_logs so it shows up next to API imports.
func logImport(ctx context.Context, log *slog.Logger, db *storage.DB, uid int, source, path string, result *ingest.Result, importErr error, durationMs int) {
	b, _ := json.Marshal(map[string]string{"file": path})
	meta := json.RawMessage(b)
	entry := storage.ImportLog{
		UserID:     uid,
		Source:     source,
		Status:     "success",
		DurationMs: &durationMs,
		Metadata:   &meta,
	}
	if importErr != nil {
		msg := importErr.Error()
		entry.Status = "error"
		entry.ErrorMessage = &msg
	}
	if result != nil {
		id := result.ImportID
		entry.ImportID = &id
		entry.RowsReceived = result.RowsReceived
		entry.RecordsParsed = result.RecordsParsed
		entry.RowsDropped = result.RowsDropped
		entry.RecordsInserted = result.RecordsInserted
	}
	if _, err := db.InsertImportLog(ctx, entry); err != nil {
		log.Warn("failed to log import", "error", err)
	}
}

func printResult(log *slog.Logger, r *ingest.Result) {
	log.Info("import stats",
		"import_id", r.ImportID,
		"rows_received", r.RowsReceived,
		"records_parsed", r.RecordsParsed,
		"goals_parsed", r.GoalsParsed,
		"rows_dropped", r.RowsDropped,
		"records_skipped", r.RecordsSkipped,
		"records_inserted", r.RecordsInserted,
	)
}
