// Package xray manages VLESS Reality clients in the Xray daemon's JSON
// config file and restarts the service to apply changes (Xray has no hot
// reload).
package xray

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const (
	// Flow control tag attached to every issued client.
	clientFlow = "xtls-rprx-vision"

	validateTimeout = 5 * time.Second
	restartTimeout  = 10 * time.Second
)

var (
	// ErrInboundNotFound means the config has no VLESS inbound with
	// Reality security; the daemon is misconfigured for this engine.
	ErrInboundNotFound = errors.New("vless reality inbound not found in xray config")

	// ErrRestartTimeout means the service restart did not finish in time.
	ErrRestartTimeout = errors.New("xray restart timeout")
)

// CommandRunner executes an external command and returns its combined
// output. The daemon tools are shelled out through this boundary so tests
// run without xray or systemd present.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// ClientList edits the client entries of the Reality inbound in the Xray
// config file. Every write is preceded by a sibling backup copy and
// followed by a validated service restart.
type ClientList struct {
	configPath string
	service    string
	runner     CommandRunner

	validateTimeout time.Duration
	restartTimeout  time.Duration
}

func NewClientList(configPath, service string, runner CommandRunner) *ClientList {
	return &ClientList{
		configPath:      configPath,
		service:         service,
		runner:          runner,
		validateTimeout: validateTimeout,
		restartTimeout:  restartTimeout,
	}
}

// EnableClient appends the client to the Reality inbound and restarts the
// service. Adding an id that is already present is a no-op.
func (l *ClientList) EnableClient(id, label string) error {
	cfg, err := l.load()
	if err != nil {
		return err
	}
	clients, setClients, err := realityClients(cfg)
	if err != nil {
		return err
	}

	for _, c := range clients {
		entry, ok := c.(map[string]any)
		if ok && entry["id"] == id {
			return nil
		}
	}

	if label == "" {
		label = fmt.Sprintf("user_%.8s", id)
	}
	setClients(append(clients, map[string]any{
		"id":    id,
		"flow":  clientFlow,
		"email": label,
	}))

	if err := l.save(cfg); err != nil {
		return err
	}
	return l.Reload()
}

// DisableClient removes the client from the Reality inbound and restarts
// the service.
func (l *ClientList) DisableClient(id string) error {
	cfg, err := l.load()
	if err != nil {
		return err
	}
	clients, setClients, err := realityClients(cfg)
	if err != nil {
		return err
	}

	kept := make([]any, 0, len(clients))
	for _, c := range clients {
		entry, ok := c.(map[string]any)
		if ok && entry["id"] == id {
			continue
		}
		kept = append(kept, c)
	}
	setClients(kept)

	if err := l.save(cfg); err != nil {
		return err
	}
	return l.Reload()
}

// Reload validates the config with xray's own test mode, and only if that
// passes restarts the service. A validation failure must never take the
// daemon down with a broken config.
func (l *ClientList) Reload() error {
	ctx, cancel := context.WithTimeout(context.Background(), l.validateTimeout)
	defer cancel()
	if out, err := l.runner.Run(ctx, "xray", "-test", "-config", l.configPath); err != nil {
		return fmt.Errorf("xray config validation failed: %v\n%s", err, bytes.TrimSpace(out))
	}

	ctx, cancel = context.WithTimeout(context.Background(), l.restartTimeout)
	defer cancel()
	out, err := l.runner.Run(ctx, "systemctl", "restart", l.service)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrRestartTimeout
		}
		return fmt.Errorf("restart %s: %v\n%s", l.service, err, bytes.TrimSpace(out))
	}
	return nil
}

func backupPath(configPath string) string {
	return configPath + ".backup"
}
