package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/auth"
	"github.com/sakif/gameratings/internal/breaker"
	"github.com/sakif/gameratings/internal/metrics"
	"github.com/sakif/gameratings/internal/recommend"
	"github.com/sakif/gameratings/internal/repository"
)

// RecommendationCandidates is how many catalog games are offered to the
// model as candidates.
const RecommendationCandidates = 50

const (
	MsgRecommendNotConfigured = "recommendations are not configured"
	MsgRecommendUnavailable   = "recommendation service is temporarily unavailable"
)

// RecommendationService asks the Recommender for games that fit a user's
// preference document.
type RecommendationService struct {
	store       repository.Store
	userData    *UserDataService
	recommender recommend.Recommender // nil when no API key is configured
	logger      *slog.Logger
}

func NewRecommendationService(store repository.Store, userData *UserDataService, rec recommend.Recommender, logger *slog.Logger) *RecommendationService {
	return &RecommendationService{store: store, userData: userData, recommender: rec, logger: logger}
}

// Recommend returns recommendations for userID, who must be the caller.
func (s *RecommendationService) Recommend(ctx context.Context, userID int64) (*recommend.Result, error) {
	if err := auth.RequireOwner(ctx, userID); err != nil {
		return nil, err
	}
	if s.recommender == nil {
		metrics.RecommendationRequests.WithLabelValues("unavailable").Inc()
		return nil, apperror.Unavailable(MsgRecommendNotConfigured)
	}

	data, err := s.userData.load(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.store.Games().List(ctx, RecommendationCandidates)
	if err != nil {
		return nil, fmt.Errorf("service/recommendation: loading candidates: %w", err)
	}

	result, err := s.recommender.Recommend(ctx, recommend.PromptContext{
		UserID:     userID,
		Interests:  data.Interests,
		Genres:     data.Genres,
		Candidates: candidates,
	})
	if err != nil {
		if breaker.IsOpen(err) {
			metrics.RecommendationRequests.WithLabelValues("unavailable").Inc()
			return nil, apperror.Unavailable(MsgRecommendUnavailable)
		}
		metrics.RecommendationRequests.WithLabelValues("error").Inc()
		s.logger.Error("recommendation failed",
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/recommendation: user %d: %w", userID, err)
	}

	metrics.RecommendationRequests.WithLabelValues("success").Inc()
	return result, nil
}
