package terminal

import (
	"testing"
	"time"
)

func TestOnlineAndOffline(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.SetOnline("t1", true)
	if !r.IsOnline("t1") {
		t.Fatalf("expected t1 online")
	}
	r.SetOnline("t1", false)
	if r.IsOnline("t1") {
		t.Fatalf("expected t1 offline")
	}
}

func TestTTLExpiresStalePresence(t *testing.T) {
	r := NewRegistry(10 * time.Millisecond)
	r.Heartbeat("t1")
	time.Sleep(30 * time.Millisecond)
	if r.IsOnline("t1") {
		t.Fatalf("stale terminal should count as offline")
	}
	if got := r.ListOnline(); len(got) != 0 {
		t.Fatalf("expected empty online list, got %+v", got)
	}
}

func TestListOnlineSkipsUnknownIDs(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.Heartbeat("t1")
	r.Heartbeat("t2")
	r.SetOnline("t2", false)

	got := r.ListOnline()
	if len(got) != 1 || got[0].TerminalID != "t1" {
		t.Fatalf("got %+v, want just t1", got)
	}
}
