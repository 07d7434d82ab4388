package xray

import (
	"encoding/json"
	"fmt"
	"os"
)

// load parses the whole Xray config generically. The engine only ever
// touches the Reality inbound's client list; everything else passes
// through untouched.
func (l *ClientList) load() (map[string]any, error) {
	raw, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("read xray config %s: %w", l.configPath, err)
	}
	var cfg map[string]any
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse xray config %s: %w", l.configPath, err)
	}
	return cfg, nil
}

// save copies the previous config to the backup path, then writes the new
// one. The backup is the recovery point if a later validation or restart
// goes wrong.
func (l *ClientList) save(cfg map[string]any) error {
	if prev, err := os.ReadFile(l.configPath); err == nil {
		if err := os.WriteFile(backupPath(l.configPath), prev, 0o600); err != nil {
			return fmt.Errorf("write xray config backup: %w", err)
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode xray config: %w", err)
	}
	if err := os.WriteFile(l.configPath, data, 0o600); err != nil {
		return fmt.Errorf("write xray config %s: %w", l.configPath, err)
	}
	return nil
}

// realityClients locates the VLESS inbound with Reality security and
// returns its client list plus a setter that writes a replacement list
// back into the config tree.
func realityClients(cfg map[string]any) ([]any, func([]any), error) {
	inbounds, _ := cfg["inbounds"].([]any)
	for _, raw := range inbounds {
		inbound, ok := raw.(map[string]any)
		if !ok || inbound["protocol"] != "vless" {
			continue
		}
		stream, _ := inbound["streamSettings"].(map[string]any)
		if stream == nil || stream["security"] != "reality" {
			continue
		}

		settings, _ := inbound["settings"].(map[string]any)
		if settings == nil {
			settings = map[string]any{}
			inbound["settings"] = settings
		}
		clients, _ := settings["clients"].([]any)
		set := func(updated []any) {
			settings["clients"] = updated
		}
		return clients, set, nil
	}
	return nil, nil, ErrInboundNotFound
}
