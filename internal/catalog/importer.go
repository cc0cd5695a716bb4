package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sakif/gameratings/internal/metrics"
	"github.com/sakif/gameratings/internal/model"
	"github.com/sakif/gameratings/internal/repository"
)

// DefaultWorkers is how many games are fetched at once when Importer is
// built with a non-positive worker count.
const DefaultWorkers = 4

// Fetcher loads the full record of one game. *Client implements it.
type Fetcher interface {
	Game(ctx context.Context, id int64) (*GameDetail, error)
}

// GameStore is the part of the game repository the importer writes to.
type GameStore interface {
	TitleExists(ctx context.Context, title string) (bool, error)
	Create(ctx context.Context, game *model.Game) error
}

var (
	_ Fetcher   = (*Client)(nil)
	_ GameStore = (repository.GameRepository)(nil)
)

// Summary counts what one Import run did. Fetched counts games whose
// details were retrieved; Failed covers fetch errors, unusable records
// and store errors alike.
type Summary struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

type outcome int

const (
	outcomeInserted outcome = iota
	outcomeSkipped
	outcomeInvalid
	outcomeFailed
)

func (o outcome) String() string {
	switch o {
	case outcomeInserted:
		return "inserted"
	case outcomeSkipped:
		return "skipped"
	case outcomeInvalid:
		return "invalid"
	default:
		return "failed"
	}
}

// result is what one worker reports for one game.
type result struct {
	fetched bool
	outcome outcome
}

// Importer copies RAWG games into the catalog.
type Importer struct {
	fetcher Fetcher
	games   GameStore
	workers int
	logger  *slog.Logger
}

func NewImporter(fetcher Fetcher, games GameStore, workers int, logger *slog.Logger) *Importer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Importer{fetcher: fetcher, games: games, workers: workers, logger: logger}
}

// Import fetches details for every listed game with at most i.workers
// requests in flight, then inserts each one whose title is new.
//
// A failure on one game is logged and counted; it never stops the run.
// Import returns ctx.Err() if the context is cancelled before every game
// was handed to a worker, together with the partial summary.
func (i *Importer) Import(ctx context.Context, listed []GameDetail) (Summary, error) {
	jobs := make(chan GameDetail)
	results := make(chan result)

	var wg sync.WaitGroup
	for w := 0; w < i.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for g := range jobs {
				results <- i.importOne(ctx, g)
			}
		}()
	}

	var feedErr error
	go func() {
		defer close(jobs)
		for _, g := range listed {
			if err := ctx.Err(); err != nil {
				feedErr = err
				return
			}
			select {
			case jobs <- g:
			case <-ctx.Done():
				feedErr = ctx.Err()
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var sum Summary
	for r := range results {
		metrics.CatalogImported.WithLabelValues(r.outcome.String()).Inc()
		if r.fetched {
			sum.Fetched++
		}
		switch r.outcome {
		case outcomeInserted:
			sum.Inserted++
		case outcomeSkipped:
			sum.Skipped++
		default:
			sum.Failed++
		}
	}

	i.logger.Info("catalog import finished",
		slog.Int("listed", len(listed)),
		slog.Int("fetched", sum.Fetched),
		slog.Int("inserted", sum.Inserted),
		slog.Int("skipped", sum.Skipped),
		slog.Int("failed", sum.Failed),
	)
	return sum, feedErr
}

func (i *Importer) importOne(ctx context.Context, listed GameDetail) result {
	log := i.logger.With(slog.Int64("rawg_id", listed.ID), slog.String("title", listed.Name))

	detail, err := i.fetcher.Game(ctx, listed.ID)
	if err != nil {
		log.Error("fetching game details", slog.String("error", err.Error()))
		return result{outcome: outcomeFailed}
	}

	game, err := ToModel(*detail)
	if err != nil {
		log.Warn("skipping unusable game", slog.String("error", err.Error()))
		return result{fetched: true, outcome: outcomeInvalid}
	}

	exists, err := i.games.TitleExists(ctx, game.Title)
	if err != nil {
		log.Error("checking title", slog.String("error", err.Error()))
		return result{fetched: true, outcome: outcomeFailed}
	}
	if exists {
		log.Debug("game already in catalog")
		return result{fetched: true, outcome: outcomeSkipped}
	}

	if err := i.games.Create(ctx, game); err != nil {
		// Another worker may have inserted the same title since the check.
		if errors.Is(err, repository.ErrDuplicate) {
			return result{fetched: true, outcome: outcomeSkipped}
		}
		log.Error("inserting game", slog.String("error", err.Error()))
		return result{fetched: true, outcome: outcomeFailed}
	}
	log.Debug("game imported", slog.Int64("game_id", game.ID))
	return result{fetched: true, outcome: outcomeInserted}
}
