package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/claude/strengthjourneys/internal/config"
	sjmcp "github.com/claude/strengthjourneys/internal/mcp"
	"github.com/claude/strengthjourneys/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local database mode)")
	remote := flag.String("remote", "", "Strength Journeys server URL; query its REST API instead of the database")
	login := flag.String("user", "local", "login whose data is served in local database mode")
	flag.Parse()

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx := context.Background()
	var ds sjmcp.DataSource
	uid := 1

	if *remote != "" {
		ds = sjmcp.NewHTTPClient(*remote)
		log.Info("remote mode", "server", *remote)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		db, err := storage.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		uid, err = db.GetOrCreateUser(ctx, *login, *login)
		if err != nil {
			log.Error("failed to resolve user", "login", *login, "error", err)
			os.Exit(1)
		}
		ds = db
		log.Info("local mode", "user", *login, "user_id", uid)
	}

	s := sjmcp.New(ds, Version, log)
	err := mcpserver.ServeStdio(s, mcpserver.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return sjmcp.WithUserID(ctx, uid)
	}))
	if err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
