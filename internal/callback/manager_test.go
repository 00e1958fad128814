package callback

import (
	"context"
	"testing"
	"time"
)

type testCallback struct {
	Base
	name Name
	seq  int
}

func (c *testCallback) Name() Name { return c.name }

func TestSubscribeDeliversInOrder(t *testing.T) {
	m := NewManager(8)
	var got []int
	m.Subscribe("a", func(cb Callback) { got = append(got, cb.(*testCallback).seq) })

	for i := 1; i <= 3; i++ {
		m.Post(&testCallback{Base: NewBase(0), name: "a", seq: i})
	}
	m.Post(&testCallback{name: "b", seq: 99})

	if n := m.Drain(); n != 4 {
		t.Fatalf("Drain = %d, want 4", n)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("delivered %v, want [1 2 3]", got)
	}
}

func TestSubscribeCancelable(t *testing.T) {
	m := NewManager(8)
	calls := 0
	cancel := m.SubscribeCancelable("a", func(Callback) { calls++ })
	m.Post(&testCallback{name: "a"})
	m.Drain()
	cancel()
	m.Post(&testCallback{name: "a"})
	m.Drain()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestSubscribeAllAndPanicIsolation(t *testing.T) {
	m := NewManager(8)
	var names []Name
	m.Subscribe("a", func(Callback) { panic("boom") })
	m.SubscribeAll(func(cb Callback) { names = append(names, cb.Name()) })

	m.Post(&testCallback{name: "a"})
	m.Post(&testCallback{name: "b"})
	m.Drain()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("SubscribeAll saw %v", names)
	}
}

func TestPostDropsWhenFull(t *testing.T) {
	m := NewManager(1)
	m.Post(&testCallback{name: "a"})
	m.Post(&testCallback{name: "a"})
	if n := m.Drain(); n != 1 {
		t.Fatalf("Drain = %d, want 1", n)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	m := NewManager(8)
	done := make(chan struct{}, 1)
	m.Subscribe("a", func(Callback) { done <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- m.Run(ctx) }()

	m.Post(&testCallback{name: "a"})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler not invoked")
	}
	cancel()
	select {
	case err := <-errc:
		if err != context.Canceled {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestTee(t *testing.T) {
	var a, b int
	s := Tee(SinkFunc(func(Callback) { a++ }), SinkFunc(func(Callback) { b++ }))
	s.Post(&testCallback{name: "x"})
	if a != 1 || b != 1 {
		t.Fatalf("a=%d b=%d", a, b)
	}
}
