// migrate создаёт или обновляет схему БД; с -reset сначала удаляет все таблицы.
package main

import (
	"flag"
	"fmt"
	"os"

	"scanx/config"
	"scanx/internal/db"
	"scanx/internal/logs"
)

func main() {
	reset := flag.Bool("reset", false, "drop all tables before migrating (destroys data)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logs.Init(logs.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	g, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	if *reset {
		logs.Logger.Warn("dropping all tables")
		if err := db.DropAll(g); err != nil {
			fmt.Fprintln(os.Stderr, "reset:", err)
			os.Exit(1)
		}
	}
	if err := db.Migrate(g); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	logs.Logger.WithField("driver", cfg.Database.Driver).Info("schema is up to date")
}
