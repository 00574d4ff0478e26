package models

import (
	"time"

	"gorm.io/datatypes"
)

// Points ledger transaction reasons.
const (
	PointsReasonEscrow      = "escrow"
	PointsReasonRefund      = "refund"
	PointsReasonTimedBonus  = "timed_bonus"
	PointsReasonChest       = "chest"
	PointsReasonDailySpin   = "daily_spin"
	PointsReasonGambleWin   = "gamble_win"
	PointsReasonGambleLoss  = "gamble_loss"
	PointsReasonStaffBonus  = "staff_bonus"
	PointsReasonStaffManual = "staff_manual"
)

// PointsTransaction is an append-only audit row for every balance mutation.
type PointsTransaction struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	StudentID uint              `gorm:"index;not null" json:"student_id"`
	Delta     int64             `gorm:"not null" json:"delta"`
	Reason    string            `gorm:"size:32;not null" json:"reason"`
	Details   datatypes.JSONMap `gorm:"type:json" json:"details"`
	CreatedAt time.Time         `json:"created_at"`
}
