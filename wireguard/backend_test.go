package wireguard

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/iOSSergey/wireguard-telegram-bot/config"
	"github.com/iOSSergey/wireguard-telegram-bot/database"
	"github.com/iOSSergey/wireguard-telegram-bot/ipmanager"
	"github.com/iOSSergey/wireguard-telegram-bot/provision"
)

// fakeController records daemon mutations in memory.
type fakeController struct {
	enabled   map[string]string // public key -> ip
	keyN      int
	enableErr error
}

func newFakeController() *fakeController {
	return &fakeController{enabled: make(map[string]string)}
}

func (f *fakeController) GenerateKeypair() (string, string, error) {
	f.keyN++
	return fmt.Sprintf("priv-%d", f.keyN), fmt.Sprintf("pub-%d", f.keyN), nil
}

func (f *fakeController) EnablePeer(publicKey, ip string) error {
	if f.enableErr != nil {
		return f.enableErr
	}
	f.enabled[publicKey] = ip
	return nil
}

func (f *fakeController) DisablePeer(publicKey string) error {
	delete(f.enabled, publicKey)
	return nil
}

func testBackend(t *testing.T, ctrl DeviceController) (*Backend, *database.WireguardPeerStore) {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatal(err)
	}
	store := database.NewWireguardPeerStore(db)
	allocator := ipmanager.NewAllocator(store, "10.8.0.", 10)
	return NewBackend(store, ctrl, allocator, testRenderer(t)), store
}

func TestProvisionFreshIdentity(t *testing.T) {
	ctrl := newFakeController()
	backend, store := testBackend(t, ctrl)
	engine := provision.NewEngine(backend)

	before := time.Now()
	first, err := engine.Provision(42, "Alice", 30)
	if err != nil {
		t.Fatal(err)
	}

	peer, err := store.ByTelegramID(42)
	if err != nil {
		t.Fatal(err)
	}
	if peer == nil {
		t.Fatal("expected a peer row")
	}
	if peer.IP != "10.8.0.10" {
		t.Fatalf("expected first lease 10.8.0.10, got %s", peer.IP)
	}
	if peer.ExpiresAt == nil || peer.ExpiresAt.Before(before.Add(29*24*time.Hour)) {
		t.Fatalf("expected ~30 day expiry, got %v", peer.ExpiresAt)
	}
	if ip, ok := ctrl.enabled[peer.PublicKey]; !ok || ip != "10.8.0.10" {
		t.Fatalf("expected peer enabled in the daemon, got %v", ctrl.enabled)
	}

	second, err := engine.Provision(42, "Alice", 30)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatal("repeated provision must return the identical config text")
	}
	if ctrl.keyN != 1 {
		t.Fatalf("expected a single keypair ever issued, got %d", ctrl.keyN)
	}
}

func TestSequentialIPAllocation(t *testing.T) {
	backend, store := testBackend(t, newFakeController())
	engine := provision.NewEngine(backend)

	for i := 0; i < 5; i++ {
		id := int64(100 + i)
		if _, err := engine.Provision(id, "user", 0); err != nil {
			t.Fatal(err)
		}
		peer, err := store.ByTelegramID(id)
		if err != nil {
			t.Fatal(err)
		}
		want := fmt.Sprintf("10.8.0.%d", 10+i)
		if peer.IP != want {
			t.Fatalf("provision %d: expected IP %s, got %s", i, want, peer.IP)
		}
	}
}

func TestActivationFailureRollsBackRecord(t *testing.T) {
	ctrl := newFakeController()
	ctrl.enableErr = errors.New("wgctrl: device not found")
	backend, store := testBackend(t, ctrl)
	engine := provision.NewEngine(backend)

	_, err := engine.Provision(42, "Alice", 30)
	if !errors.Is(err, provision.ErrDaemonUnavailable) {
		t.Fatalf("expected ErrDaemonUnavailable, got %v", err)
	}

	peer, err := store.ByTelegramID(42)
	if err != nil {
		t.Fatal(err)
	}
	if peer != nil {
		t.Fatal("expected the orphaned record rolled back")
	}
}

func TestDeactivateRemovesDaemonPeer(t *testing.T) {
	ctrl := newFakeController()
	backend, store := testBackend(t, ctrl)
	engine := provision.NewEngine(backend)

	if _, err := engine.Provision(42, "Alice", 30); err != nil {
		t.Fatal(err)
	}
	if err := backend.Deactivate(42); err != nil {
		t.Fatal(err)
	}
	if len(ctrl.enabled) != 0 {
		t.Fatalf("expected empty daemon peer set, got %v", ctrl.enabled)
	}
	// Deactivation alone does not touch the store flag; that is the
	// sweeper's decision.
	peer, _ := store.ByTelegramID(42)
	if !peer.Enabled {
		t.Fatal("expected store flag untouched by deactivation")
	}
}
