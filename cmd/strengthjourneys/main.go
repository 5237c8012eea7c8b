package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"

	"github.com/claude/strengthjourneys/internal/config"
	"github.com/claude/strengthjourneys/internal/ingest/alpha"
	"github.com/claude/strengthjourneys/internal/ingest/gsheet"
	sjmcp "github.com/claude/strengthjourneys/internal/mcp"
	"github.com/claude/strengthjourneys/internal/server"
	"github.com/claude/strengthjourneys/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	log.Info("Strength Journeys starting", "version", Version)

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Sheets API access is optional; without it only pushed rows and CSV work.
	var fetcher gsheet.Fetcher
	creds := gsheet.Credentials{
		CredentialsFile: cfg.Sheets.CredentialsFile,
		ClientID:        cfg.Sheets.ClientID,
		ClientSecret:    cfg.Sheets.ClientSecret,
		RefreshToken:    cfg.Sheets.RefreshToken,
		APIKey:          cfg.Sheets.APIKey,
	}
	if creds.Configured() {
		f, err := gsheet.NewSheetsFetcher(ctx, creds)
		if err != nil {
			log.Error("sheets client unavailable, sheet ingest disabled", "error", err)
		} else {
			fetcher = f
			log.Info("google sheets fetching enabled")
		}
	}
	provider := gsheet.NewProvider(db, fetcher, log)

	// Create server
	srv := server.New(db, provider, alpha.NewProvider(db, log), cfg, log)

	mcpSrv := sjmcp.New(db, Version, log)
	srv.SetMCP(mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return sjmcp.WithUserID(ctx, server.UserIDFromRequest(r))
		}),
	))

	if cfg.Server.StaticDir != "" {
		srv.SetFrontend(os.DirFS(cfg.Server.StaticDir))
		log.Info("serving dashboard", "dir", cfg.Server.StaticDir)
	}

	// Serve on the tailnet when enabled, plain HTTP otherwise
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
