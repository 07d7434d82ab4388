package models

import "errors"

// ErrInvalidPolicy is returned when a policy update would disable every
// protocol or select a disabled protocol as primary.
var ErrInvalidPolicy = errors.New("invalid protocol policy")

// ProtocolPolicy is the singleton admin-managed switch selecting which
// tunnel protocols are active and which one fresh users receive.
type ProtocolPolicy struct {
	ID               uint   `gorm:"primaryKey"`
	WireguardEnabled bool   `gorm:"not null"`
	VlessEnabled     bool   `gorm:"not null"`
	PrimaryProtocol  string `gorm:"not null"`
}

// DefaultPolicy matches the original deployment: WireGuard on and primary,
// VLESS off.
func DefaultPolicy() ProtocolPolicy {
	return ProtocolPolicy{
		WireguardEnabled: true,
		VlessEnabled:     false,
		PrimaryProtocol:  ProtocolWireguard,
	}
}

// Validate rejects combinations that would leave users without any
// protocol or default them onto a disabled one.
func (p ProtocolPolicy) Validate() error {
	if !p.WireguardEnabled && !p.VlessEnabled {
		return ErrInvalidPolicy
	}
	switch p.PrimaryProtocol {
	case ProtocolWireguard:
		if !p.WireguardEnabled {
			return ErrInvalidPolicy
		}
	case ProtocolVless:
		if !p.VlessEnabled {
			return ErrInvalidPolicy
		}
	default:
		return ErrInvalidPolicy
	}
	return nil
}

// Enabled reports whether the named protocol is switched on.
func (p ProtocolPolicy) Enabled(protocol string) bool {
	switch protocol {
	case ProtocolWireguard:
		return p.WireguardEnabled
	case ProtocolVless:
		return p.VlessEnabled
	}
	return false
}
