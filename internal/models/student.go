package models

import "time"

// Student represents a learner with a points ledger attached.
// BonusPoints is a signed ledger: staff penalties and lost gambles may drive it
// negative, only escrow and gamble enforce a sufficiency check.
type Student struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	BonusPoints  int64     `gorm:"not null;default:0" json:"bonus_points"`
	Streak       int       `gorm:"not null;default:0" json:"streak"`
	LastSpinDate string    `gorm:"size:10" json:"last_spin_date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasSpunOn reports whether the student already used the daily spin on the
// given calendar day.
func (s Student) HasSpunOn(day time.Time) bool {
	return s.LastSpinDate == day.Format("2006-01-02")
}
