// Package wireguard adapts the running WireGuard daemon: key generation,
// runtime peer-table mutation through wgctrl, and client config rendering.
package wireguard

import (
	"fmt"
	"net"

	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// DeviceController is the narrow daemon boundary the provisioning engine
// depends on. Tests substitute a fake; production uses the wgctrl-backed
// implementation below.
type DeviceController interface {
	// GenerateKeypair returns a fresh private/public key pair, base64.
	GenerateKeypair() (privateKey, publicKey string, err error)
	// EnablePeer adds (or updates) the peer in the device's runtime table
	// with a single /32 allowed IP. Idempotent.
	EnablePeer(publicKey, ip string) error
	// DisablePeer removes the peer from the runtime table. Removing an
	// absent peer is not an error.
	DisablePeer(publicKey string) error
}

// WgctrlController drives the kernel (or userspace) WireGuard device over
// the wgctrl socket. A client is opened per call; the control socket is
// cheap and holding it open buys nothing.
type WgctrlController struct {
	iface string
}

func NewWgctrlController(iface string) *WgctrlController {
	return &WgctrlController{iface: iface}
}

func (c *WgctrlController) GenerateKeypair() (string, string, error) {
	key, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return "", "", fmt.Errorf("generate private key: %w", err)
	}
	return key.String(), key.PublicKey().String(), nil
}

func (c *WgctrlController) EnablePeer(publicKey, ip string) error {
	key, err := wgtypes.ParseKey(publicKey)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return fmt.Errorf("invalid peer IP %q", ip)
	}

	return c.configure(wgtypes.PeerConfig{
		PublicKey:         key,
		ReplaceAllowedIPs: true,
		AllowedIPs: []net.IPNet{{
			IP:   addr,
			Mask: net.CIDRMask(32, 32),
		}},
	})
}

func (c *WgctrlController) DisablePeer(publicKey string) error {
	key, err := wgtypes.ParseKey(publicKey)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}
	return c.configure(wgtypes.PeerConfig{
		PublicKey: key,
		Remove:    true,
	})
}

func (c *WgctrlController) configure(peer wgtypes.PeerConfig) error {
	client, err := wgctrl.New()
	if err != nil {
		return fmt.Errorf("open wgctrl: %w", err)
	}
	defer client.Close()

	err = client.ConfigureDevice(c.iface, wgtypes.Config{
		Peers: []wgtypes.PeerConfig{peer},
	})
	if err != nil {
		return fmt.Errorf("configure device %s: %w", c.iface, err)
	}
	return nil
}
