// usersync: однократная синхронизация каталога пользователей (без HTTP-сервера).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"scanx/config"
	"scanx/internal/db"
	"scanx/internal/directory"
	"scanx/internal/logs"
	"scanx/internal/repo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logs.Init(logs.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, File: cfg.Logging.File})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logs.Logger.Fatalf("db open failed: %v", err)
	}
	if err := db.Migrate(g); err != nil {
		logs.Logger.Fatalf("db migrate failed: %v", err)
	}

	src, err := directory.NewSource(ctx, directory.Options{
		Source:   cfg.Directory.Source,
		FilePath: cfg.Directory.FilePath,
		Google: directory.GoogleOptions{
			KeyFile:    cfg.Directory.Google.KeyFile,
			AdminEmail: cfg.Directory.Google.AdminEmail,
			Customer:   cfg.Directory.Google.Customer,
		},
	})
	if err != nil {
		logs.Logger.Fatalf("directory source: %v", err)
	}

	n, err := directory.NewSyncer(src, repo.NewUserStore(g), cfg.Directory.Interval).SyncOnce(ctx)
	if err != nil {
		logs.Logger.Fatalf("users sync failed after %d rows: %v", n, err)
	}
	logs.Logger.Infof("users sync completed, %d rows written", n)
}
