package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dojo-go-api/internal/models"
)

func newLeaderboardFixture(t *testing.T) (*memStudentRepo, *redis.Client, LeaderboardService) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	students := newMemStudentRepo(
		models.Student{ID: 1, Name: "Ada", BonusPoints: 30, Streak: 2},
		models.Student{ID: 2, Name: "Grace", BonusPoints: 50, Streak: 7},
		models.Student{ID: 3, Name: "Edsger", BonusPoints: 10},
	)

	svc := NewLeaderboardService(students, client, time.Minute, zerolog.Nop())
	return students, client, svc
}

func TestLeaderboardRanksAndCaches(t *testing.T) {
	_, client, svc := newLeaderboardFixture(t)

	board, err := svc.Top(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, board.Entries, 3)
	require.Equal(t, 1, board.Entries[0].Rank)
	require.Equal(t, "Grace", board.Entries[0].Name)
	require.Equal(t, "Edsger", board.Entries[2].Name)

	cached, err := client.Get(context.Background(), leaderboardCacheKey).Result()
	require.NoError(t, err)
	require.NotEmpty(t, cached)
}

func TestLeaderboardServesFromCache(t *testing.T) {
	students, _, svc := newLeaderboardFixture(t)

	first, err := svc.Top(context.Background(), 3)
	require.NoError(t, err)

	// Mutate the backing store; the cached board must not see it.
	students.students[3].BonusPoints = 999

	second, err := svc.Top(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, first.GeneratedAt.Unix(), second.GeneratedAt.Unix())
}

func TestLeaderboardLimitApplied(t *testing.T) {
	_, _, svc := newLeaderboardFixture(t)

	board, err := svc.Top(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)
}

func TestLeaderboardWorksWithoutCache(t *testing.T) {
	students := newMemStudentRepo(models.Student{ID: 1, Name: "Ada", BonusPoints: 5})
	svc := NewLeaderboardService(students, nil, time.Minute, zerolog.Nop())

	board, err := svc.Top(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)
}
