package xray

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iOSSergey/wireguard-telegram-bot/database"
	"github.com/iOSSergey/wireguard-telegram-bot/models"
	"github.com/iOSSergey/wireguard-telegram-bot/provision"
)

// Backend implements provision.Backend for the VLESS Reality protocol.
type Backend struct {
	store   *database.VlessPeerStore
	clients *ClientList
	links   *LinkBuilder
}

func NewBackend(store *database.VlessPeerStore, clients *ClientList, links *LinkBuilder) *Backend {
	return &Backend{store: store, clients: clients, links: links}
}

func (b *Backend) Protocol() string {
	return models.ProtocolVless
}

func (b *Backend) Lookup(telegramID int64) (*provision.Status, error) {
	peer, err := b.store.ByTelegramID(telegramID)
	if err != nil {
		return nil, err
	}
	if peer == nil {
		return nil, nil
	}
	return peerStatus(peer), nil
}

func (b *Backend) Issue(telegramID int64, name string, expiresAt *time.Time) error {
	err := b.store.Create(&models.VlessPeer{
		TelegramID: telegramID,
		Name:       name,
		ClientID:   uuid.NewString(),
		CreatedAt:  time.Now(),
		ExpiresAt:  expiresAt,
		Enabled:    true,
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return provision.ErrAllocationConflict
	}
	return err
}

func (b *Backend) Activate(telegramID int64) error {
	peer, err := b.store.ByTelegramID(telegramID)
	if err != nil {
		return err
	}
	if peer == nil {
		return provision.ErrPeerNotFound
	}
	// The identity tags the client entry so the user shows up readable in
	// Xray access logs.
	return b.clients.EnableClient(peer.ClientID, fmt.Sprintf("tg_%d", telegramID))
}

func (b *Backend) Deactivate(telegramID int64) error {
	peer, err := b.store.ByTelegramID(telegramID)
	if err != nil {
		return err
	}
	if peer == nil {
		return provision.ErrPeerNotFound
	}
	return b.clients.DisableClient(peer.ClientID)
}

func (b *Backend) Remove(telegramID int64) error {
	return b.store.Delete(telegramID)
}

func (b *Backend) Descriptor(telegramID int64, name string) (string, error) {
	peer, err := b.store.ByTelegramID(telegramID)
	if err != nil {
		return "", err
	}
	if peer == nil {
		return "", provision.ErrPeerNotFound
	}
	return b.links.Build(peer.ClientID, name), nil
}

func (b *Backend) SetEnabled(telegramID int64, enabled bool) error {
	return b.store.SetEnabled(telegramID, enabled)
}

func (b *Backend) UpdateExpiry(telegramID int64, expiresAt time.Time) error {
	return b.store.UpdateExpiry(telegramID, expiresAt)
}

func (b *Backend) ForRestore(now time.Time) ([]provision.Status, error) {
	peers, err := b.store.ForRestore(now)
	if err != nil {
		return nil, err
	}
	return statuses(peers), nil
}

func (b *Backend) Expired(now time.Time) ([]provision.Status, error) {
	peers, err := b.store.Expired(now)
	if err != nil {
		return nil, err
	}
	return statuses(peers), nil
}

func peerStatus(peer *models.VlessPeer) *provision.Status {
	return &provision.Status{
		TelegramID: peer.TelegramID,
		Name:       peer.Name,
		Address:    peer.ClientID,
		Enabled:    peer.Enabled,
		CreatedAt:  peer.CreatedAt,
		ExpiresAt:  peer.ExpiresAt,
	}
}

func statuses(peers []models.VlessPeer) []provision.Status {
	out := make([]provision.Status, len(peers))
	for i := range peers {
		out[i] = *peerStatus(&peers[i])
	}
	return out
}
