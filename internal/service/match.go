package service

import (
	"context"

	"github.com/rs/zerolog/log"

	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
	"github.com/skillswap/exchange-server-go/internal/match"
	"github.com/skillswap/exchange-server-go/internal/metrics"
	"github.com/skillswap/exchange-server-go/internal/model"
	redisclient "github.com/skillswap/exchange-server-go/internal/redis"
	"github.com/skillswap/exchange-server-go/internal/repository"
)

// MatchResult carries both the strict matches and the community list. Fallback
// tells the client to show the community list because nothing matched.
type MatchResult struct {
	Matches   []model.UserProfile `json:"matches"`
	Community []model.UserProfile `json:"community"`
	Fallback  bool                `json:"fallback"`
}

type MatchService struct {
	profileRepo repository.ProfileRepository
	subscriber  EventSubscriber
	metrics     *metrics.Metrics
}

func NewMatchService(profileRepo repository.ProfileRepository, subscriber EventSubscriber, m *metrics.Metrics) *MatchService {
	return &MatchService{
		profileRepo: profileRepo,
		subscriber:  subscriber,
		metrics:     m,
	}
}

func (s *MatchService) FindForUser(ctx context.Context, userID string) (*MatchResult, error) {
	if err := requireID(userID, "profile"); err != nil {
		return nil, err
	}
	current, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.RemoteOperation("load profile", err)
	}
	if current == nil {
		return nil, apperrors.NotFound("profile")
	}

	pool, err := s.profileRepo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.RemoteOperation("list profiles", err)
	}

	result := &MatchResult{
		Matches:   match.FindMatches(*current, pool),
		Community: match.Community(*current, pool),
	}
	result.Fallback = len(result.Matches) == 0 && len(result.Community) > 0

	s.metrics.ObserveMatches(len(result.Matches), result.Fallback)
	log.Debug().
		Str("userId", userID).
		Int("pool", len(pool)).
		Int("matches", len(result.Matches)).
		Bool("fallback", result.Fallback).
		Msg("matches computed")

	return result, nil
}

// WatchMatches recomputes userID's matches now and whenever any profile changes.
func (s *MatchService) WatchMatches(ctx context.Context, userID string, onSnapshot func(*MatchResult), onError func(error)) (func(), error) {
	if err := requireID(userID, "profile"); err != nil {
		return nil, err
	}
	current, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.RemoteOperation("load profile", err)
	}
	if current == nil {
		return nil, apperrors.NotFound("profile")
	}
	load := func(ctx context.Context) (*MatchResult, error) {
		return s.FindForUser(ctx, userID)
	}
	return watchTopic(ctx, s.subscriber, redisclient.ProfilesTopic, load, onSnapshot, onError), nil
}
