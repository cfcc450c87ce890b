package connectivity

import (
	"net"
	"testing"
	"time"
)

func TestProberOnlineAgainstListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	p, err := NewProber("http://"+ln.Addr().String(), time.Second, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsOnline() {
		t.Error("expected online against live listener")
	}
}

func TestProberCachesVerdictWithinTTL(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()

	p, err := NewProber("http://"+addr, time.Second, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsOnline() {
		t.Fatal("expected online")
	}
	ln.Close()
	// Listener is gone but the cached verdict is still within its TTL.
	if !p.IsOnline() {
		t.Error("expected cached online verdict")
	}
}

func TestProberOfflineAgainstClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	p, err := NewProber("http://"+addr, 500*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if p.IsOnline() {
		t.Error("expected offline against closed port")
	}
}

func TestStatic(t *testing.T) {
	if !Static(true).IsOnline() || Static(false).IsOnline() {
		t.Error("Static oracle should echo its value")
	}
}
