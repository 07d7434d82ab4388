package database

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/iOSSergey/wireguard-telegram-bot/models"
)

// WireguardPeerStore persists WireGuard peer records.
type WireguardPeerStore struct {
	db *gorm.DB
}

func NewWireguardPeerStore(db *gorm.DB) *WireguardPeerStore {
	return &WireguardPeerStore{db: db}
}

// ByTelegramID returns the peer for the given identity, or nil when no row
// exists. The uniqueness constraint guarantees at most one result.
func (s *WireguardPeerStore) ByTelegramID(telegramID int64) (*models.WireguardPeer, error) {
	var peer models.WireguardPeer
	err := s.db.Where("telegram_id = ?", telegramID).First(&peer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &peer, nil
}

// Create inserts a new peer row. A second row for the same identity, public
// key, or IP fails with gorm.ErrDuplicatedKey.
func (s *WireguardPeerStore) Create(peer *models.WireguardPeer) error {
	return s.db.Create(peer).Error
}

func (s *WireguardPeerStore) SetEnabled(telegramID int64, enabled bool) error {
	return s.db.Model(&models.WireguardPeer{}).
		Where("telegram_id = ?", telegramID).
		Update("enabled", enabled).Error
}

func (s *WireguardPeerStore) UpdateExpiry(telegramID int64, expiresAt time.Time) error {
	return s.db.Model(&models.WireguardPeer{}).
		Where("telegram_id = ?", telegramID).
		Update("expires_at", expiresAt).Error
}

func (s *WireguardPeerStore) Delete(telegramID int64) error {
	return s.db.Where("telegram_id = ?", telegramID).
		Delete(&models.WireguardPeer{}).Error
}

// ForRestore returns every enabled peer whose access has not expired; used
// at startup to rebuild the daemon's live peer table.
func (s *WireguardPeerStore) ForRestore(now time.Time) ([]models.WireguardPeer, error) {
	var peers []models.WireguardPeer
	err := s.db.Where("enabled = ? AND (expires_at IS NULL OR expires_at > ?)", true, now).
		Find(&peers).Error
	return peers, err
}

// Expired returns every enabled peer whose expiry has passed.
func (s *WireguardPeerStore) Expired(now time.Time) ([]models.WireguardPeer, error) {
	var peers []models.WireguardPeer
	err := s.db.Where("enabled = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Find(&peers).Error
	return peers, err
}

// AllIPs returns every leased address; the allocator derives the next free
// one from this set.
func (s *WireguardPeerStore) AllIPs() ([]string, error) {
	var ips []string
	err := s.db.Model(&models.WireguardPeer{}).Pluck("ip", &ips).Error
	return ips, err
}

// Count reports the number of peer rows.
func (s *WireguardPeerStore) Count() (int64, error) {
	var n int64
	err := s.db.Model(&models.WireguardPeer{}).Count(&n).Error
	return n, err
}

// All returns every peer row.
func (s *WireguardPeerStore) All() ([]models.WireguardPeer, error) {
	var peers []models.WireguardPeer
	err := s.db.Find(&peers).Error
	return peers, err
}

// VlessPeerStore persists VLESS peer records. It mirrors the WireGuard
// store; the two tables share lifecycle shape but not credential material.
type VlessPeerStore struct {
	db *gorm.DB
}

func NewVlessPeerStore(db *gorm.DB) *VlessPeerStore {
	return &VlessPeerStore{db: db}
}

func (s *VlessPeerStore) ByTelegramID(telegramID int64) (*models.VlessPeer, error) {
	var peer models.VlessPeer
	err := s.db.Where("telegram_id = ?", telegramID).First(&peer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &peer, nil
}

func (s *VlessPeerStore) Create(peer *models.VlessPeer) error {
	return s.db.Create(peer).Error
}

func (s *VlessPeerStore) SetEnabled(telegramID int64, enabled bool) error {
	return s.db.Model(&models.VlessPeer{}).
		Where("telegram_id = ?", telegramID).
		Update("enabled", enabled).Error
}

func (s *VlessPeerStore) UpdateExpiry(telegramID int64, expiresAt time.Time) error {
	return s.db.Model(&models.VlessPeer{}).
		Where("telegram_id = ?", telegramID).
		Update("expires_at", expiresAt).Error
}

func (s *VlessPeerStore) Delete(telegramID int64) error {
	return s.db.Where("telegram_id = ?", telegramID).
		Delete(&models.VlessPeer{}).Error
}

func (s *VlessPeerStore) ForRestore(now time.Time) ([]models.VlessPeer, error) {
	var peers []models.VlessPeer
	err := s.db.Where("enabled = ? AND (expires_at IS NULL OR expires_at > ?)", true, now).
		Find(&peers).Error
	return peers, err
}

func (s *VlessPeerStore) Expired(now time.Time) ([]models.VlessPeer, error) {
	var peers []models.VlessPeer
	err := s.db.Where("enabled = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Find(&peers).Error
	return peers, err
}

func (s *VlessPeerStore) Count() (int64, error) {
	var n int64
	err := s.db.Model(&models.VlessPeer{}).Count(&n).Error
	return n, err
}

func (s *VlessPeerStore) All() ([]models.VlessPeer, error) {
	var peers []models.VlessPeer
	err := s.db.Find(&peers).Error
	return peers, err
}
