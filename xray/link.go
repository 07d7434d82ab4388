package xray

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/iOSSergey/wireguard-telegram-bot/config"
)

// LinkBuilder renders vless:// connection URIs. Server-side parameters are
// fixed at construction; parameter presence and order are part of the
// client compatibility contract.
type LinkBuilder struct {
	serverAddress string
	serverName    string
	publicKey     string
	shortID       string
	namePrefix    string
}

func NewLinkBuilder(cfg config.XrayConfig) (*LinkBuilder, error) {
	if cfg.ServerName == "" {
		return nil, fmt.Errorf("XRAY_SERVER_NAME is required")
	}
	if cfg.ServerAddress == "" {
		return nil, fmt.Errorf("XRAY_SERVER_ADDRESS is required")
	}
	if cfg.PublicKey == "" {
		return nil, fmt.Errorf("XRAY_PUBLIC_KEY is required")
	}
	return &LinkBuilder{
		serverAddress: cfg.ServerAddress,
		serverName:    cfg.ServerName,
		publicKey:     cfg.PublicKey,
		shortID:       cfg.ShortID,
		namePrefix:    cfg.ConfigPrefix,
	}, nil
}

// Build returns the vless:// URI for the client id. The fragment is the
// configured prefix plus the user label, percent-encoded.
func (b *LinkBuilder) Build(id, label string) string {
	params := []string{
		"type=tcp",
		"security=reality",
		"pbk=" + b.publicKey,
		"fp=chrome",
		"sni=" + b.serverName,
	}
	if b.shortID != "" {
		params = append(params, "sid="+b.shortID)
	}
	params = append(params, "flow="+clientFlow)

	displayName := b.namePrefix
	if label != "" {
		displayName = fmt.Sprintf("%s - %s", b.namePrefix, label)
	}

	return fmt.Sprintf("vless://%s@%s?%s#%s",
		id, b.serverAddress, strings.Join(params, "&"), percentEncode(displayName))
}

// percentEncode escapes every reserved character, spaces included, as %XX.
// url.QueryEscape alone would emit '+' for spaces, which VPN clients do not
// decode in fragments.
func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
