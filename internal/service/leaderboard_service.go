package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dojo-go-api/internal/dto"
	"github.com/noah-isme/dojo-go-api/internal/repository"
)

const leaderboardCacheKey = "leaderboard:points"

// LeaderboardService ranks students by bonus point balance.
type LeaderboardService interface {
	Top(ctx context.Context, limit int) (dto.LeaderboardResponse, error)
}

type leaderboardService struct {
	students repository.StudentRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewLeaderboardService constructs the leaderboard service. The cache client
// may be nil, in which case every read hits the database.
func NewLeaderboardService(students repository.StudentRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) LeaderboardService {
	return &leaderboardService{
		students: students,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "leaderboard_service").Logger(),
	}
}

func (s *leaderboardService) Top(ctx context.Context, limit int) (dto.LeaderboardResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, leaderboardCacheKey).Result(); err == nil {
			var response dto.LeaderboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil && len(response.Entries) >= limit {
				response.Entries = response.Entries[:limit]
				s.logger.Debug().Int("limit", limit).Msg("leaderboard cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read leaderboard cache")
		}
	}

	students, err := s.students.TopByPoints(ctx, 100)
	if err != nil {
		return dto.LeaderboardResponse{}, err
	}

	response := dto.LeaderboardResponse{
		Entries:     make([]dto.LeaderboardEntry, 0, len(students)),
		GeneratedAt: time.Now().UTC(),
	}
	for i, student := range students {
		response.Entries = append(response.Entries, dto.LeaderboardEntry{
			Rank:      i + 1,
			StudentID: student.ID,
			Name:      student.Name,
			Points:    student.BonusPoints,
			Streak:    student.Streak,
		})
	}

	if s.cache != nil {
		if payload, marshalErr := json.Marshal(response); marshalErr == nil {
			if err := s.cache.Set(ctx, leaderboardCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store leaderboard cache")
			}
		}
	}

	if len(response.Entries) > limit {
		response.Entries = response.Entries[:limit]
	}
	return response, nil
}
