package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/kdimtricp/tubely/internal/config"
	"github.com/kdimtricp/tubely/internal/database"
	"github.com/kdimtricp/tubely/internal/log"
)

func main() {
	var (
		configPath     = flag.String("config", "", "Path to a YAML config file")
		migrationsPath = flag.String("migrations", "", "Directory of migrations (defaults to the embedded set)")
		status         = flag.Bool("status", false, "Show migration status only")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Configure(log.Config{Level: cfg.LogLevel})
	logger := log.WithComponent("migrate")

	if cfg.RecordStore == "dynamodb" {
		logger.Fatal().Msg("dynamodb record store has no schema migrations")
	}

	db, err := database.NewDB(database.Config{
		Type:       cfg.RecordStore,
		Host:       cfg.DBHost,
		Port:       cfg.DBPort,
		User:       cfg.DBUser,
		Password:   cfg.DBPassword,
		Name:       cfg.DBName,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	dir := *migrationsPath
	if dir == "" {
		dir = cfg.MigrationsDir
	}
	var fsys fs.FS = database.Migrations()
	if dir != "" {
		fsys = os.DirFS(dir)
	}

	ctx := context.Background()
	migrator := database.NewMigrator(db.Conn(), db.Type())

	if *status {
		migrations, applied, err := migrator.Status(ctx, fsys)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to read migration status")
		}

		fmt.Println("Migration Status:")
		fmt.Println("=================")
		for _, m := range migrations {
			state := "pending"
			if applied[m.Version] {
				state = "applied"
			}
			fmt.Printf("%s - %s [%s]\n", m.Version, m.Name, state)
		}
		return
	}

	if err := migrator.Run(ctx, fsys); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}
	fmt.Println("Migrations completed successfully!")
}
