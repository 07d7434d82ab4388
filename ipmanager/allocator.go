package ipmanager

import (
	"fmt"
	"sync"
)

// LeaseSource exposes the currently leased addresses. Satisfied by the
// WireGuard peer store.
type LeaseSource interface {
	AllIPs() ([]string, error)
}

// Allocator hands out client addresses as prefix + octet, monotonically
// increasing from a reserved starting offset. Addresses below the offset
// are never issued; they belong to manually configured peers.
//
// The mutex serializes in-process allocation so two concurrent first-time
// provisions cannot compute the same address. The table's unique index on
// the IP column remains the cross-process backstop: an insert that still
// collides must be treated by the caller as a retryable conflict.
type Allocator struct {
	mu     sync.Mutex
	source LeaseSource
	prefix string
	first  int
}

func NewAllocator(source LeaseSource, prefix string, firstClientIP int) *Allocator {
	return &Allocator{source: source, prefix: prefix, first: firstClientIP}
}

// Next returns the lowest unissued address above every current lease, or
// the starting offset when no lease exists yet.
func (a *Allocator) Next() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ips, err := a.source.AllIPs()
	if err != nil {
		return "", fmt.Errorf("read leased addresses: %w", err)
	}

	next := a.first
	for _, ip := range ips {
		octet, err := LastOctet(ip)
		if err != nil {
			continue
		}
		if octet >= next {
			next = octet + 1
		}
	}
	if next > 254 {
		return "", fmt.Errorf("address pool %s exhausted", a.prefix)
	}
	return fmt.Sprintf("%s%d", a.prefix, next), nil
}
