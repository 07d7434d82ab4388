package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/iOSSergey/wireguard-telegram-bot/models"
)

// PolicyStore persists the singleton protocol policy.
type PolicyStore struct {
	db *gorm.DB
}

func NewPolicyStore(db *gorm.DB) *PolicyStore {
	return &PolicyStore{db: db}
}

// Get returns the stored policy, or the default when none has been saved.
func (s *PolicyStore) Get() (models.ProtocolPolicy, error) {
	var policy models.ProtocolPolicy
	err := s.db.First(&policy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultPolicy(), nil
	}
	if err != nil {
		return models.ProtocolPolicy{}, err
	}
	return policy, nil
}

// Set validates and persists the policy. Invalid combinations are rejected
// before anything touches the database.
func (s *PolicyStore) Set(policy models.ProtocolPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	current, err := s.Get()
	if err != nil {
		return err
	}
	policy.ID = current.ID
	return s.db.Save(&policy).Error
}
