package models

import "time"

// PromoCode is a single-use access extension code. Once activated it is
// immutable evidence of the redemption and is never deleted.
type PromoCode struct {
	ID          uint   `gorm:"primaryKey"`
	Code        string `gorm:"uniqueIndex;not null"`
	Days        int    `gorm:"not null"`
	CreatedBy   int64  `gorm:"not null"`
	CreatedAt   time.Time
	ActivatedAt *time.Time
	ActivatedBy *int64
}
