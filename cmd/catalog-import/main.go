// Command catalog-import fills the games table from the RAWG catalog.
//
// Usage:
//
//	catalog-import -mode popular -limit 100
//	catalog-import -mode recent -days 30 -limit 50
//
// It reads the same configuration sources as the server (.env,
// config.yaml, environment) and needs RAWG_API_KEY but not JWT_SECRET.
// Titles already in the database are skipped, so the command is safe to
// re-run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"

	"github.com/sakif/gameratings/internal/catalog"
	"github.com/sakif/gameratings/internal/config"
	"github.com/sakif/gameratings/internal/repository/sqlstore"
)

func main() {
	cfg, err := config.LoadImporter(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger(os.Stderr)

	mode := flag.String("mode", "popular", "which games to import: popular or recent")
	limit := flag.Int("limit", cfg.Catalog.PageSize, "maximum number of games to import")
	days := flag.Int("days", 10, "with -mode recent, how many days back to look")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *mode, *limit, *days); err != nil {
		logger.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, mode string, limit, days int) error {
	store, err := sqlstore.Open(ctx, sqlstore.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	client := catalog.NewClient(catalog.ClientConfig{
		APIKey:  cfg.Catalog.APIKey,
		BaseURL: cfg.Catalog.BaseURL,
		Timeout: cfg.Catalog.Timeout,
	}, logger)

	var listed []catalog.GameDetail
	switch mode {
	case "popular":
		listed, err = client.Popular(ctx, limit)
	case "recent":
		listed, err = client.Recent(ctx, days, limit)
	default:
		return fmt.Errorf("unknown -mode %q (want popular or recent)", mode)
	}
	if err != nil {
		return fmt.Errorf("listing %s games: %w", mode, err)
	}

	importer := catalog.NewImporter(client, store.Games(), cfg.Catalog.Workers, logger)
	summary, err := importer.Import(ctx, listed)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
