package wireguard

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/iOSSergey/wireguard-telegram-bot/database"
	"github.com/iOSSergey/wireguard-telegram-bot/ipmanager"
	"github.com/iOSSergey/wireguard-telegram-bot/models"
	"github.com/iOSSergey/wireguard-telegram-bot/provision"
)

// Backend implements provision.Backend for the WireGuard protocol.
type Backend struct {
	store     *database.WireguardPeerStore
	ctrl      DeviceController
	allocator *ipmanager.Allocator
	renderer  *ConfigRenderer
}

func NewBackend(store *database.WireguardPeerStore, ctrl DeviceController, allocator *ipmanager.Allocator, renderer *ConfigRenderer) *Backend {
	return &Backend{store: store, ctrl: ctrl, allocator: allocator, renderer: renderer}
}

func (b *Backend) Protocol() string {
	return models.ProtocolWireguard
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

// Issue generates a keypair, leases the next address, and persists the row.
// An insert that hits the unique IP (or identity) index is reported as a
// retryable allocation conflict.
func (b *Backend) Issue(telegramID int64, name string, expiresAt *time.Time) error {
	privateKey, publicKey, err := b.ctrl.GenerateKeypair()
	if err != nil {
		return fmt.Errorf("%w: %v", provision.ErrDaemonUnavailable, err)
	}

	ip, err := b.allocator.Next()
	if err != nil {
		return err
	}

	err = b.store.Create(&models.WireguardPeer{
		TelegramID: telegramID,
		Name:       name,
		PrivateKey: privateKey,
		PublicKey:  publicKey,
		IP:         ip,
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
	return b.ctrl.EnablePeer(peer.PublicKey, peer.IP)
}

func (b *Backend) Deactivate(telegramID int64) error {
	peer, err := b.store.ByTelegramID(telegramID)
	if err != nil {
		return err
	}
	if peer == nil {
		return provision.ErrPeerNotFound
	}
	return b.ctrl.DisablePeer(peer.PublicKey)
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
	return b.renderer.Render(peer.PrivateKey, peer.IP)
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

func peerStatus(peer *models.WireguardPeer) *provision.Status {
	return &provision.Status{
		TelegramID: peer.TelegramID,
		Name:       peer.Name,
		Address:    peer.IP,
		Enabled:    peer.Enabled,
		CreatedAt:  peer.CreatedAt,
		ExpiresAt:  peer.ExpiresAt,
	}
}

func statuses(peers []models.WireguardPeer) []provision.Status {
	out := make([]provision.Status, len(peers))
	for i := range peers {
		out[i] = *peerStatus(&peers[i])
	}
	return out
}
