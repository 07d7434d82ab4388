package models

import "time"

// Protocol names used by the policy and the provisioning backends.
const (
	ProtocolWireguard = "wireguard"
	ProtocolVless     = "vless"
)

// WireguardPeer is one provisioned WireGuard credential set. One row per
// Telegram identity; the private key is owned exclusively by this record,
// the public key is also pushed into the running daemon.
type WireguardPeer struct {
	ID         uint   `gorm:"primaryKey"`
	TelegramID int64  `gorm:"uniqueIndex;not null"`
	Name       string
	PrivateKey string `gorm:"not null"`
	PublicKey  string `gorm:"uniqueIndex;not null"`
	IP         string `gorm:"uniqueIndex;not null"`
	CreatedAt  time.Time
	ExpiresAt  *time.Time // nil = unlimited access
	Enabled    bool       `gorm:"not null"`
}

// VlessPeer is one provisioned VLESS Reality client. The opaque ClientID
// is the credential; it never changes for the lifetime of the row.
type VlessPeer struct {
	ID         uint   `gorm:"primaryKey"`
	TelegramID int64  `gorm:"uniqueIndex;not null"`
	Name       string
	ClientID   string `gorm:"uniqueIndex;not null"`
	CreatedAt  time.Time
	ExpiresAt  *time.Time
	Enabled    bool `gorm:"not null"`
}
