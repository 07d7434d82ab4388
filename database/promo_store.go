package database

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/iOSSergey/wireguard-telegram-bot/models"
)

// PromoStats summarizes promo code usage for the admin surface.
type PromoStats struct {
	Total     int64
	Activated int64
	Unused    int64
}

// PromoStore persists promo codes. Codes are append-only: activation fills
// in the activation fields, nothing is ever deleted.
type PromoStore struct {
	db *gorm.DB
}

func NewPromoStore(db *gorm.DB) *PromoStore {
	return &PromoStore{db: db}
}

func (s *PromoStore) Save(code string, days int, createdBy int64) error {
	return s.db.Create(&models.PromoCode{
		Code:      code,
		Days:      days,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}).Error
}

// Get returns the code row, or nil when the code does not exist.
func (s *PromoStore) Get(code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := s.db.Where("code = ?", code).First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// Activate records the redemption. The row keeps its creation fields; the
// activation timestamp makes any further redemption attempt visible.
func (s *PromoStore) Activate(code string, activatedBy int64) error {
	now := time.Now()
	return s.db.Model(&models.PromoCode{}).
		Where("code = ?", code).
		Updates(map[string]any{
			"activated_at": now,
			"activated_by": activatedBy,
		}).Error
}

// Stats returns usage totals plus the 20 most recently created codes,
// newest first.
func (s *PromoStore) Stats() (PromoStats, []models.PromoCode, error) {
	var stats PromoStats
	if err := s.db.Model(&models.PromoCode{}).Count(&stats.Total).Error; err != nil {
		return stats, nil, err
	}
	if err := s.db.Model(&models.PromoCode{}).
		Where("activated_at IS NOT NULL").
		Count(&stats.Activated).Error; err != nil {
		return stats, nil, err
	}
	stats.Unused = stats.Total - stats.Activated

	var recent []models.PromoCode
	if err := s.db.Order("created_at DESC").Limit(20).Find(&recent).Error; err != nil {
		return stats, nil, err
	}
	return stats, recent, nil
}
