// Command import-countries loads the Natural Earth country export
// (NAME;wkt_geom) into the configured location backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/playperu/cityguesser/internal/config"
	"github.com/playperu/cityguesser/internal/database"
	"github.com/playperu/cityguesser/internal/geoquiz"
	"github.com/playperu/cityguesser/internal/importer"
	"github.com/playperu/cityguesser/internal/migrations"
	"github.com/playperu/cityguesser/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type writer interface {
	importer.BoundaryWriter
	importer.LocationWriter
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("import-countries", flag.ContinueOnError)
	file := fs.String("file", "countries_import.csv", "path to the NAME;wkt_geom export")
	difficulty := fs.String("add-locations", "", "also add each country as a game location with this difficulty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	opts := importer.Options{}
	if *difficulty != "" {
		d, err := geoquiz.ParseDifficulty(*difficulty)
		if err != nil {
			return err
		}
		opts.Difficulty = d
	}

	var dst writer
	switch cfg.LocationBackend {
	case config.BackendPostGIS:
		pool, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()

		db := database.SQLFromPool(pool)
		defer db.Close()
		if err := migrations.Run(db, migrations.Postgres); err != nil {
			return fmt.Errorf("running postgres migrations: %w", err)
		}
		dst = store.NewPostGIS(pool)
	default:
		db, err := database.Open(ctx, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("connecting to sqlite: %w", err)
		}
		defer db.Close()

		if err := migrations.Run(db, migrations.SQLite); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		dst = store.NewSQLite(db)
	}
	opts.Locations = dst

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("opening export: %w", err)
	}
	defer f.Close()

	rep, err := importer.Import(ctx, f, dst, opts, logger)
	if err != nil {
		return fmt.Errorf("importing %s: %w", *file, err)
	}
	logger.Info("import finished",
		"file", *file,
		"backend", cfg.LocationBackend,
		"imported", rep.Imported,
		"skipped", rep.Skipped,
		"locations", rep.Locations,
	)
	return nil
}
