package models

import (
	"errors"
	"testing"
)

func TestPolicyValidate(t *testing.T) {
	cases := []struct {
		name   string
		policy ProtocolPolicy
		ok     bool
	}{
		{"default", DefaultPolicy(), true},
		{"both enabled, vless primary", ProtocolPolicy{WireguardEnabled: true, VlessEnabled: true, PrimaryProtocol: ProtocolVless}, true},
		{"vless only", ProtocolPolicy{VlessEnabled: true, PrimaryProtocol: ProtocolVless}, true},
		{"nothing enabled", ProtocolPolicy{PrimaryProtocol: ProtocolWireguard}, false},
		{"primary disabled", ProtocolPolicy{VlessEnabled: true, PrimaryProtocol: ProtocolWireguard}, false},
		{"unknown primary", ProtocolPolicy{WireguardEnabled: true, PrimaryProtocol: "openvpn"}, false},
		{"empty primary", ProtocolPolicy{WireguardEnabled: true}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.policy.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid policy, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidPolicy) {
				t.Fatalf("expected ErrInvalidPolicy, got %v", err)
			}
		})
	}
}

func TestPolicyEnabled(t *testing.T) {
	policy := DefaultPolicy()
	if !policy.Enabled(ProtocolWireguard) {
		t.Fatal("wireguard must be enabled by default")
	}
	if policy.Enabled(ProtocolVless) {
		t.Fatal("vless must be disabled by default")
	}
	if policy.Enabled("openvpn") {
		t.Fatal("unknown protocols are never enabled")
	}
}
