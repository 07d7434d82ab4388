package provision

import (
	"errors"
	"fmt"
)

// Sentinel errors for the provisioning state machine. Callers match these
// with [errors.Is]; everything else coming out of the engine is an
// infrastructure failure carrying its raw cause.
var (
	// ErrAccessDisabled means the identity has a peer row but access was
	// revoked or expired. The engine never silently re-enables; that is an
	// explicit admin or promo-redemption action.
	ErrAccessDisabled = errors.New("access is disabled or expired")

	// ErrAllocationConflict means an address allocation raced with another
	// insert and hit the unique constraint. Retryable.
	ErrAllocationConflict = errors.New("address allocation conflict")

	// ErrDaemonUnavailable means the tunnel daemon could not be driven
	// (control tool failed, config rejected, service restart failed).
	ErrDaemonUnavailable = errors.New("tunnel daemon unavailable")

	// ErrPeerNotFound is returned by operations that require an existing
	// peer row for the identity.
	ErrPeerNotFound = errors.New("peer not found")
)

// PeerError wraps an underlying error with protocol and identity context.
type PeerError struct {
	Protocol   string
	Op         string
	TelegramID int64
	Err        error
}

func (e *PeerError) Error() string {
	return fmt.Sprintf("%s peer tg=%d: %s: %v", e.Protocol, e.TelegramID, e.Op, e.Err)
}

func (e *PeerError) Unwrap() error {
	return e.Err
}
