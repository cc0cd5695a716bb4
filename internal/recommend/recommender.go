// Package recommend turns a user's preference document into game
// recommendations by asking an OpenAI-compatible chat completion API to
// call a structured function.
//
// The pieces compose as decorators around one interface:
//
//	rec := recommend.NewCompletionClient(cfg, logger)   // talks HTTP
//	rec  = recommend.WithBreaker(rec, logger)            // fail fast when upstream is down
//	rec  = recommend.WithCache(rec, rdb, ttl, logger)    // per-user Redis cache
package recommend

import (
	"context"
	"errors"

	"github.com/sakif/gameratings/internal/model"
)

// MaxRecommendations caps how many games one answer may contain.
const MaxRecommendations = 3

// ErrNoStructuredCall means the completion came back without a call to
// the expected function.
var ErrNoStructuredCall = errors.New("recommend: no valid recommendations returned from completion API")

// PromptContext is everything the prompt is built from.
type PromptContext struct {
	UserID     int64
	Interests  []string
	Genres     []string
	Candidates []model.Game
}

// Recommendation is one suggested game as returned by the model.
type Recommendation struct {
	GameID       int64   `json:"game_id"`
	Title        string  `json:"title"`
	Genre        string  `json:"genre"`
	ReviewRating float64 `json:"review_rating"`
}

// Result is the parsed function-call payload.
type Result struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// Recommender produces recommendations for a prompt context.
type Recommender interface {
	Recommend(ctx context.Context, pc PromptContext) (*Result, error)
}

// RecommenderFunc adapts a function to Recommender.
type RecommenderFunc func(ctx context.Context, pc PromptContext) (*Result, error)

func (f RecommenderFunc) Recommend(ctx context.Context, pc PromptContext) (*Result, error) {
	return f(ctx, pc)
}
