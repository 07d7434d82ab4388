// Package provision implements the peer lifecycle engine: one external
// identity maps to exactly one durable credential set per protocol, and the
// engine drives the Absent -> Active -> {Active, Disabled} transitions
// against a protocol backend.
package provision

import (
	"errors"
	"fmt"
	"time"
)

// Status is the protocol-neutral view of a peer row.
type Status struct {
	TelegramID int64
	Name       string
	// Address is the peer's network identity: the leased IP for WireGuard,
	// the client id for VLESS.
	Address   string
	Enabled   bool
	CreatedAt time.Time
	ExpiresAt *time.Time // nil = unlimited
}

// Backend supplies the protocol-specific half of the lifecycle: credential
// issuance, daemon control, and descriptor rendering. The engine and the
// sweeper are written once against this interface; the WireGuard and VLESS
// adapters implement it.
type Backend interface {
	Protocol() string

	// Lookup returns the peer's status, or nil when the identity has no row.
	Lookup(telegramID int64) (*Status, error)

	// Issue generates fresh credential material and persists the row.
	// A uniqueness race on insert is reported as ErrAllocationConflict.
	Issue(telegramID int64, name string, expiresAt *time.Time) error

	// Activate and Deactivate reconcile the stored record into or out of
	// the live daemon. Both are idempotent at the daemon level.
	Activate(telegramID int64) error
	Deactivate(telegramID int64) error

	// Remove deletes the stored row. Used to roll back a persisted record
	// whose daemon activation failed.
	Remove(telegramID int64) error

	// Descriptor renders the client connection artifact from the stored
	// credential material. Byte-stable for identical inputs.
	Descriptor(telegramID int64, name string) (string, error)

	SetEnabled(telegramID int64, enabled bool) error
	UpdateExpiry(telegramID int64, expiresAt time.Time) error

	// ForRestore lists enabled, non-expired peers; Expired lists enabled
	// peers whose expiry has passed.
	ForRestore(now time.Time) ([]Status, error)
	Expired(now time.Time) ([]Status, error)
}

// Engine runs the provisioning state machine for one protocol backend.
type Engine struct {
	backend Backend
}

func NewEngine(backend Backend) *Engine {
	return &Engine{backend: backend}
}

func (e *Engine) Protocol() string {
	return e.backend.Protocol()
}

func (e *Engine) Backend() Backend {
	return e.backend
}

// Provision returns the identity's durable connection descriptor, creating
// the peer on first access. Repeated calls for an active peer are
// idempotent and yield byte-identical output; no new credentials are ever
// issued for an existing identity. ttlDays <= 0 means unlimited access.
func (e *Engine) Provision(telegramID int64, name string, ttlDays int) (string, error) {
	status, err := e.backend.Lookup(telegramID)
	if err != nil {
		return "", e.wrap("lookup", telegramID, err)
	}

	if status != nil {
		if status.Enabled {
			descriptor, err := e.backend.Descriptor(telegramID, name)
			if err != nil {
				return "", e.wrap("render", telegramID, err)
			}
			return descriptor, nil
		}
		return "", e.wrap("provision", telegramID, ErrAccessDisabled)
	}

	var expiresAt *time.Time
	if ttlDays > 0 {
		t := time.Now().Add(time.Duration(ttlDays) * 24 * time.Hour)
		expiresAt = &t
	}

	if err := e.backend.Issue(telegramID, name, expiresAt); err != nil {
		if !errors.Is(err, ErrAllocationConflict) {
			return "", e.wrap("issue", telegramID, err)
		}
		// Allocation raced with a concurrent insert; the allocator state
		// has moved on, so one retry settles it.
		if err := e.backend.Issue(telegramID, name, expiresAt); err != nil {
			return "", e.wrap("issue", telegramID, err)
		}
	}

	if err := e.backend.Activate(telegramID); err != nil {
		// A persisted record without live daemon state is not an acceptable
		// resting state: roll the row back so the next attempt starts clean.
		if rbErr := e.backend.Remove(telegramID); rbErr != nil {
			return "", e.wrap("rollback", telegramID,
				fmt.Errorf("%w: %v (rollback also failed: %v)", ErrDaemonUnavailable, err, rbErr))
		}
		return "", e.wrap("activate", telegramID, fmt.Errorf("%w: %v", ErrDaemonUnavailable, err))
	}

	descriptor, err := e.backend.Descriptor(telegramID, name)
	if err != nil {
		return "", e.wrap("render", telegramID, err)
	}
	return descriptor, nil
}

// Status returns the peer's lifecycle view, or ErrPeerNotFound.
func (e *Engine) Status(telegramID int64) (*Status, error) {
	status, err := e.backend.Lookup(telegramID)
	if err != nil {
		return nil, e.wrap("lookup", telegramID, err)
	}
	if status == nil {
		return nil, e.wrap("status", telegramID, ErrPeerNotFound)
	}
	return status, nil
}

// Extend pushes the peer's expiry forward by the given number of days,
// measured from the current expiry when it is still in the future and from
// now otherwise. A disabled peer is re-enabled: daemon first, then the
// store flag, then the expiry write. A failed re-activation leaves the
// expiry untouched, so a retry after daemon recovery starts from the
// un-extended state instead of stacking extensions.
func (e *Engine) Extend(telegramID int64, days int, now time.Time) (time.Time, error) {
	status, err := e.backend.Lookup(telegramID)
	if err != nil {
		return time.Time{}, e.wrap("lookup", telegramID, err)
	}
	if status == nil {
		return time.Time{}, e.wrap("extend", telegramID, ErrPeerNotFound)
	}

	if !status.Enabled {
		if err := e.backend.Activate(telegramID); err != nil {
			return time.Time{}, e.wrap("activate", telegramID,
				fmt.Errorf("%w: %v", ErrDaemonUnavailable, err))
		}
		if err := e.backend.SetEnabled(telegramID, true); err != nil {
			return time.Time{}, e.wrap("extend", telegramID, err)
		}
	}

	base := now
	if status.ExpiresAt != nil && status.ExpiresAt.After(now) {
		base = *status.ExpiresAt
	}
	newExpiry := base.Add(time.Duration(days) * 24 * time.Hour)

	if err := e.backend.UpdateExpiry(telegramID, newExpiry); err != nil {
		return time.Time{}, e.wrap("extend", telegramID, err)
	}
	return newExpiry, nil
}

func (e *Engine) wrap(op string, telegramID int64, err error) error {
	return &PeerError{
		Protocol:   e.backend.Protocol(),
		Op:         op,
		TelegramID: telegramID,
		Err:        err,
	}
}
