package provision

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeBackend is an in-memory Backend with scriptable failures.
type fakeBackend struct {
	peers map[int64]*Status

	issueCalls    int
	conflictFirst bool
	activateErr   error
	active        map[int64]bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		peers:  make(map[int64]*Status),
		active: make(map[int64]bool),
	}
}

func (f *fakeBackend) Protocol() string { return "fake" }

func (f *fakeBackend) Lookup(id int64) (*Status, error) {
	st, ok := f.peers[id]
	if !ok {
		return nil, nil
	}
	copied := *st
	return &copied, nil
}

func (f *fakeBackend) Issue(id int64, name string, expiresAt *time.Time) error {
	f.issueCalls++
	if f.conflictFirst && f.issueCalls == 1 {
		return ErrAllocationConflict
	}
	if _, ok := f.peers[id]; ok {
		return ErrAllocationConflict
	}
	f.peers[id] = &Status{
		TelegramID: id,
		Name:       name,
		Address:    fmt.Sprintf("10.8.0.%d", 9+len(f.peers)+1),
		Enabled:    true,
		CreatedAt:  time.Now(),
		ExpiresAt:  expiresAt,
	}
	return nil
}

func (f *fakeBackend) Activate(id int64) error {
	if f.activateErr != nil {
		return f.activateErr
	}
	f.active[id] = true
	return nil
}

func (f *fakeBackend) Deactivate(id int64) error {
	delete(f.active, id)
	return nil
}

func (f *fakeBackend) Remove(id int64) error {
	delete(f.peers, id)
	return nil
}

func (f *fakeBackend) Descriptor(id int64, name string) (string, error) {
	st, ok := f.peers[id]
	if !ok {
		return "", ErrPeerNotFound
	}
	return "config for " + st.Address, nil
}

func (f *fakeBackend) SetEnabled(id int64, enabled bool) error {
	st, ok := f.peers[id]
	if !ok {
		return ErrPeerNotFound
	}
	st.Enabled = enabled
	return nil
}

func (f *fakeBackend) UpdateExpiry(id int64, expiresAt time.Time) error {
	st, ok := f.peers[id]
	if !ok {
		return ErrPeerNotFound
	}
	st.ExpiresAt = &expiresAt
	return nil
}

func (f *fakeBackend) ForRestore(now time.Time) ([]Status, error) {
	var out []Status
	for _, st := range f.peers {
		if st.Enabled && (st.ExpiresAt == nil || st.ExpiresAt.After(now)) {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (f *fakeBackend) Expired(now time.Time) ([]Status, error) {
	var out []Status
	for _, st := range f.peers {
		if st.Enabled && st.ExpiresAt != nil && !st.ExpiresAt.After(now) {
			out = append(out, *st)
		}
	}
	return out, nil
}

func TestProvisionIdempotent(t *testing.T) {
	backend := newFakeBackend()
	engine := NewEngine(backend)

	first, err := engine.Provision(42, "Alice", 30)
	if err != nil {
		t.Fatal(err)
	}
	second, err := engine.Provision(42, "Alice", 30)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("expected byte-identical descriptors, got %q then %q", first, second)
	}
	if len(backend.peers) != 1 {
		t.Fatalf("expected exactly one peer row, got %d", len(backend.peers))
	}
	if backend.issueCalls != 1 {
		t.Fatalf("expected credentials issued once, got %d", backend.issueCalls)
	}
	if !backend.active[42] {
		t.Fatal("expected peer active in the daemon")
	}
}

func TestProvisionSetsExpiry(t *testing.T) {
	backend := newFakeBackend()
	engine := NewEngine(backend)

	before := time.Now()
	if _, err := engine.Provision(42, "Alice", 30); err != nil {
		t.Fatal(err)
	}
	after := time.Now()

	st := backend.peers[42]
	if st.ExpiresAt == nil {
		t.Fatal("expected an expiry for ttlDays=30")
	}
	lo := before.Add(30 * 24 * time.Hour)
	hi := after.Add(30 * 24 * time.Hour)
	if st.ExpiresAt.Before(lo) || st.ExpiresAt.After(hi) {
		t.Fatalf("expiry %v outside [%v, %v]", st.ExpiresAt, lo, hi)
	}
}

func TestProvisionUnlimitedWithoutTTL(t *testing.T) {
	backend := newFakeBackend()
	engine := NewEngine(backend)

	if _, err := engine.Provision(42, "Alice", 0); err != nil {
		t.Fatal(err)
	}
	if backend.peers[42].ExpiresAt != nil {
		t.Fatal("expected unlimited access for ttlDays=0")
	}
}

func TestProvisionDisabledPeer(t *testing.T) {
	backend := newFakeBackend()
	engine := NewEngine(backend)

	if _, err := engine.Provision(42, "Alice", 30); err != nil {
		t.Fatal(err)
	}
	if err := backend.SetEnabled(42, false); err != nil {
		t.Fatal(err)
	}

	_, err := engine.Provision(42, "Alice", 30)
	if !errors.Is(err, ErrAccessDisabled) {
		t.Fatalf("expected ErrAccessDisabled, got %v", err)
	}
}

func TestProvisionRetriesAllocationConflict(t *testing.T) {
	backend := newFakeBackend()
	backend.conflictFirst = true
	engine := NewEngine(backend)

	if _, err := engine.Provision(42, "Alice", 30); err != nil {
		t.Fatal(err)
	}
	if backend.issueCalls != 2 {
		t.Fatalf("expected one retry after the conflict, got %d calls", backend.issueCalls)
	}
}

func TestProvisionRollsBackOnActivationFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.activateErr = errors.New("daemon down")
	engine := NewEngine(backend)

	_, err := engine.Provision(42, "Alice", 30)
	if !errors.Is(err, ErrDaemonUnavailable) {
		t.Fatalf("expected ErrDaemonUnavailable, got %v", err)
	}
	if len(backend.peers) != 0 {
		t.Fatal("expected the persisted record to be rolled back")
	}
}

func TestExtendFutureExpiry(t *testing.T) {
	backend := newFakeBackend()
	engine := NewEngine(backend)

	now := time.Now().Truncate(time.Second)
	future := now.Add(48 * time.Hour)
	backend.peers[42] = &Status{TelegramID: 42, Enabled: true, ExpiresAt: &future}

	got, err := engine.Extend(42, 7, now)
	if err != nil {
		t.Fatal(err)
	}
	want := future.Add(7 * 24 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, got)
	}
}

func TestExtendPastExpiryStartsFromNow(t *testing.T) {
	backend := newFakeBackend()
	engine := NewEngine(backend)

	now := time.Now().Truncate(time.Second)
	past := now.Add(-48 * time.Hour)
	backend.peers[42] = &Status{TelegramID: 42, Enabled: true, ExpiresAt: &past}

	got, err := engine.Extend(42, 7, now)
	if err != nil {
		t.Fatal(err)
	}
	want := now.Add(7 * 24 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, got)
	}
}

func TestExtendReenablesDisabledPeer(t *testing.T) {
	backend := newFakeBackend()
	engine := NewEngine(backend)

	now := time.Now()
	backend.peers[42] = &Status{TelegramID: 42, Enabled: false}

	if _, err := engine.Extend(42, 7, now); err != nil {
		t.Fatal(err)
	}
	if !backend.active[42] {
		t.Fatal("expected peer re-activated in the daemon")
	}
	if !backend.peers[42].Enabled {
		t.Fatal("expected store flag flipped back to enabled")
	}
}

func TestExtendDaemonFailureKeepsPeerDisabled(t *testing.T) {
	backend := newFakeBackend()
	engine := NewEngine(backend)
	now := time.Now().Truncate(time.Second)
	expiry := now.Add(-48 * time.Hour)
	backend.peers[42] = &Status{TelegramID: 42, Enabled: false, ExpiresAt: &expiry}
	backend.activateErr = errors.New("daemon down")

	_, err := engine.Extend(42, 7, now)
	if !errors.Is(err, ErrDaemonUnavailable) {
		t.Fatalf("expected ErrDaemonUnavailable, got %v", err)
	}
	if backend.peers[42].Enabled {
		t.Fatal("store must not claim access the daemon does not provide")
	}
	if !backend.peers[42].ExpiresAt.Equal(expiry) {
		t.Fatal("a failed re-activation must leave the expiry untouched")
	}

	// Once the daemon recovers, the retry applies exactly one extension.
	backend.activateErr = nil
	got, err := engine.Extend(42, 7, now)
	if err != nil {
		t.Fatal(err)
	}
	want := now.Add(7 * 24 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("expected expiry %v after retry, got %v", want, got)
	}
}

func TestStatusNotFound(t *testing.T) {
	engine := NewEngine(newFakeBackend())
	_, err := engine.Status(42)
	if !errors.Is(err, ErrPeerNotFound) {
		t.Fatalf("expected ErrPeerNotFound, got %v", err)
	}
}
