package wireguard

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/iOSSergey/wireguard-telegram-bot/config"
)

func init() {
	// Plain "Key = value" lines, no column alignment. The rendered file is
	// a compatibility contract with standard WireGuard clients and must be
	// byte-stable for identical inputs.
	ini.PrettyFormat = false
	ini.PrettyEqual = true
}

// ConfigRenderer produces the client-side .conf text. Server-side values
// (public key, endpoint, DNS, allowed IPs) are fixed at construction; only
// the peer's private key and leased address vary.
type ConfigRenderer struct {
	serverPublicKey string
	endpoint        string
	dns             string
	allowedIPs      string
}

// NewConfigRenderer reads the server public key from the configured path
// once at startup. A missing key file is a boot failure, not a per-request
// surprise.
func NewConfigRenderer(cfg config.WireguardConfig) (*ConfigRenderer, error) {
	raw, err := os.ReadFile(cfg.ServerPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read server public key: %w", err)
	}
	return &ConfigRenderer{
		serverPublicKey: strings.TrimSpace(string(raw)),
		endpoint:        cfg.Endpoint,
		dns:             cfg.DNS,
		allowedIPs:      cfg.AllowedIPs,
	}, nil
}

// Render builds the [Interface]/[Peer] file for one peer. Section and key
// order are part of the client compatibility contract.
func (r *ConfigRenderer) Render(privateKey, ip string) (string, error) {
	file := ini.Empty()

	iface, err := file.NewSection("Interface")
	if err != nil {
		return "", err
	}
	iface.NewKey("PrivateKey", privateKey)
	iface.NewKey("Address", fmt.Sprintf("%s/32", ip))
	iface.NewKey("DNS", r.dns)

	peer, err := file.NewSection("Peer")
	if err != nil {
		return "", err
	}
	peer.NewKey("PublicKey", r.serverPublicKey)
	peer.NewKey("Endpoint", r.endpoint)
	peer.NewKey("AllowedIPs", r.allowedIPs)
	peer.NewKey("PersistentKeepalive", "25")

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("render client config: %w", err)
	}
	return buf.String(), nil
}
