package dto

import (
	"time"

	"github.com/noah-isme/dojo-go-api/internal/session"
)

// GambleRequest is the payload for a 50/50 points gamble.
type GambleRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// BalanceResponse reports the current points balance.
type BalanceResponse struct {
	StudentID uint  `json:"student_id"`
	Balance   int64 `json:"balance"`
	Streak    int   `json:"streak"`
}

// SessionOpenRequest is the payload for opening a task attempt.
type SessionOpenRequest struct {
	Mode string `json:"mode" validate:"required,oneof=untimed timed"`
	Bet  int64  `json:"bet" validate:"omitempty,gte=0"`
}

// SessionResponse describes an open attempt.
type SessionResponse struct {
	TaskID    uint   `json:"task_id"`
	Mode      string `json:"mode"`
	Bet       int64  `json:"bet"`
	StartedAt string `json:"started_at"`
}

// NewSessionResponse converts session state into the transport shape.
func NewSessionResponse(taskID uint, state session.State) SessionResponse {
	return SessionResponse{
		TaskID:    taskID,
		Mode:      string(state.Mode),
		Bet:       state.Bet,
		StartedAt: state.StartedAt.UTC().Format(time.RFC3339),
	}
}

// LeaderboardEntry is one row of the points leaderboard.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	StudentID uint   `json:"student_id"`
	Name      string `json:"name"`
	Points    int64  `json:"points"`
	Streak    int    `json:"streak"`
}

// LeaderboardResponse is the cached top-N by bonus points.
type LeaderboardResponse struct {
	Entries     []LeaderboardEntry `json:"entries"`
	GeneratedAt time.Time          `json:"generated_at"`
}
