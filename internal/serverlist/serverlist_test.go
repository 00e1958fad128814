package serverlist

import (
	"context"
	"testing"
	"time"

	"github.com/tuokri/SteamKit/internal/steammsg"
)

func TestFromCMList(t *testing.T) {
	recs := FromCMList(&steammsg.ClientCMList{
		Addresses:          []uint32{0x7F000001, 0x0A000002},
		Ports:              []uint32{27017, 27018},
		WebSocketAddresses: []string{"cm1.example", "cm2.example:27020"},
	})
	want := []ServerRecord{
		{Addr: "127.0.0.1:27017", Protocol: TCP},
		{Addr: "10.0.0.2:27018", Protocol: TCP},
		{Addr: "cm1.example:443", Protocol: WebSocket},
		{Addr: "cm2.example:27020", Protocol: WebSocket},
	}
	if len(recs) != len(want) {
		t.Fatalf("got %v, want %v", recs, want)
	}
	for i := range want {
		if recs[i] != want[i] {
			t.Errorf("record %d mismatch: got %v, want %v", i, recs[i], want[i])
		}
	}
}

func TestListRoundRobin(t *testing.T) {
	l := NewList(nil)
	_ = l.Replace(context.Background(), []ServerRecord{
		{Addr: "a:1", Protocol: TCP},
		{Addr: "w:443", Protocol: WebSocket},
		{Addr: "b:1", Protocol: TCP},
		{Addr: "a:1", Protocol: TCP},
	})
	if n := len(l.All()); n != 3 {
		t.Fatalf("duplicates kept: %d servers", n)
	}
	var got []string
	for i := 0; i < 4; i++ {
		r, ok := l.Next(TCP)
		if !ok {
			t.Fatal("Next returned nothing")
		}
		got = append(got, r.Addr)
	}
	want := []string{"a:1", "b:1", "a:1", "b:1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if _, ok := NewList(nil).Next(""); ok {
		t.Fatal("empty list returned a server")
	}
}

func TestListMarkBad(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewList(nil)
	l.now = func() time.Time { return now }
	a := ServerRecord{Addr: "a:1", Protocol: TCP}
	b := ServerRecord{Addr: "b:1", Protocol: TCP}
	_ = l.Replace(context.Background(), []ServerRecord{a, b})

	l.MarkBad(a, time.Minute)
	for i := 0; i < 3; i++ {
		if r, _ := l.Next(TCP); r != b {
			t.Fatalf("Next = %v, want %v", r, b)
		}
	}

	l.MarkBad(b, 2*time.Minute)
	if r, _ := l.Next(TCP); r != a {
		t.Fatalf("all bad: Next = %v, want soonest-expiring %v", r, a)
	}

	now = now.Add(3 * time.Minute)
	if r, _ := l.Next(TCP); r != b && r != a {
		t.Fatalf("Next after expiry = %v", r)
	}
}

func TestListLoadFromProvider(t *testing.T) {
	p := &MemoryProvider{}
	recs := []ServerRecord{{Addr: "a:1", Protocol: TCP}}
	if err := NewList(p).Replace(context.Background(), recs); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	l := NewList(p)
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if all := l.All(); len(all) != 1 || all[0] != recs[0] {
		t.Fatalf("loaded %v", all)
	}
}
