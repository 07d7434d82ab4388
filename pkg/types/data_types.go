package types

import "time"

// PeerSummary is the admin-facing view of one provisioned peer. It is both
// the API list element and the value cached in Redis.
type PeerSummary struct {
	TelegramID int64      `json:"telegram_id"`
	Protocol   string     `json:"protocol"`
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	Enabled    bool       `json:"enabled"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// StatusResponse reports per-protocol peer counts plus the active policy.
type StatusResponse struct {
	WireguardPeers int64          `json:"wireguard_peers"`
	VlessPeers     int64          `json:"vless_peers"`
	Policy         PolicyResponse `json:"policy"`
}

// PolicyResponse mirrors the protocol policy over the wire.
type PolicyResponse struct {
	WireguardEnabled bool   `json:"wireguard_enabled"`
	VlessEnabled     bool   `json:"vless_enabled"`
	PrimaryProtocol  string `json:"primary_protocol"`
}

// PromoCodeResponse is one code row in the stats listing.
type PromoCodeResponse struct {
	Code        string     `json:"code"`
	Days        int        `json:"days"`
	CreatedAt   time.Time  `json:"created_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	ActivatedBy *int64     `json:"activated_by,omitempty"`
}

// PromoStatsResponse summarizes promo code usage.
type PromoStatsResponse struct {
	Total     int64               `json:"total"`
	Activated int64               `json:"activated"`
	Unused    int64               `json:"unused"`
	Recent    []PromoCodeResponse `json:"recent"`
}
