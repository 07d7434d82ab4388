package ipmanager

import (
	"errors"
	"fmt"
	"testing"
)

type staticSource struct {
	ips []string
	err error
}

func (s *staticSource) AllIPs() ([]string, error) {
	return s.ips, s.err
}

func TestNextFromEmptyTable(t *testing.T) {
	alloc := NewAllocator(&staticSource{}, "10.8.0.", 10)

	ip, err := alloc.Next()
	if err != nil {
		t.Fatal(err)
	}
	if ip != "10.8.0.10" {
		t.Fatalf("expected reserved offset 10.8.0.10, got %s", ip)
	}
}

func TestNextSequential(t *testing.T) {
	source := &staticSource{}
	alloc := NewAllocator(source, "10.8.0.", 10)

	for i := 0; i < 5; i++ {
		ip, err := alloc.Next()
		if err != nil {
			t.Fatal(err)
		}
		want := fmt.Sprintf("10.8.0.%d", 10+i)
		if ip != want {
			t.Fatalf("allocation %d: expected %s, got %s", i, want, ip)
		}
		source.ips = append(source.ips, ip)
	}
}

func TestNextSkipsAboveHighestLease(t *testing.T) {
	source := &staticSource{ips: []string{"10.8.0.10", "10.8.0.25", "10.8.0.11"}}
	alloc := NewAllocator(source, "10.8.0.", 10)

	ip, err := alloc.Next()
	if err != nil {
		t.Fatal(err)
	}
	if ip != "10.8.0.26" {
		t.Fatalf("expected 10.8.0.26 above the highest lease, got %s", ip)
	}
}

func TestNextIgnoresMalformedLeases(t *testing.T) {
	source := &staticSource{ips: []string{"not-an-ip", "10.8.0.12"}}
	alloc := NewAllocator(source, "10.8.0.", 10)

	ip, err := alloc.Next()
	if err != nil {
		t.Fatal(err)
	}
	if ip != "10.8.0.13" {
		t.Fatalf("expected 10.8.0.13, got %s", ip)
	}
}

func TestNextPoolExhausted(t *testing.T) {
	source := &staticSource{ips: []string{"10.8.0.254"}}
	alloc := NewAllocator(source, "10.8.0.", 10)

	if _, err := alloc.Next(); err == nil {
		t.Fatal("expected pool exhaustion error")
	}
}

func TestNextSourceError(t *testing.T) {
	wantErr := errors.New("db down")
	alloc := NewAllocator(&staticSource{err: wantErr}, "10.8.0.", 10)

	if _, err := alloc.Next(); !errors.Is(err, wantErr) {
		t.Fatalf("expected source error surfaced, got %v", err)
	}
}

func TestLastOctet(t *testing.T) {
	if _, err := LastOctet("fe80::1"); err == nil {
		t.Fatal("expected error for IPv6 address")
	}
	octet, err := LastOctet("10.8.0.42")
	if err != nil {
		t.Fatal(err)
	}
	if octet != 42 {
		t.Fatalf("expected 42, got %d", octet)
	}
}
