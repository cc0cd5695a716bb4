package recommend

import (
	"context"
	"log/slog"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sakif/gameratings/internal/breaker"
)

type breakerRecommender struct {
	next Recommender
	cb   *gobreaker.CircuitBreaker[*Result]
}

// WithBreaker wraps next in a circuit breaker named "completion-api".
// While the circuit is open calls fail immediately with an error for
// which breaker.IsOpen is true.
func WithBreaker(next Recommender, logger *slog.Logger) Recommender {
	return WithBreakerSettings(next, breaker.Settings{}, logger)
}

// WithBreakerSettings is WithBreaker with an explicit policy.
func WithBreakerSettings(next Recommender, s breaker.Settings, logger *slog.Logger) Recommender {
	return &breakerRecommender{
		next: next,
		cb:   breaker.NewWithSettings[*Result]("completion-api", s, logger),
	}
}

func (b *breakerRecommender) Recommend(ctx context.Context, pc PromptContext) (*Result, error) {
	return breaker.Execute(b.cb, func() (*Result, error) {
		return b.next.Recommend(ctx, pc)
	})
}
