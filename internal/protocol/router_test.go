package protocol

import (
	"errors"
	"testing"
)

func TestDispatchTable_RejectsNilHandler(t *testing.T) {
	_, err := NewDispatchTable(map[EMsg]Handler{
		EMsgMulti:         func(Dispatcher, *Envelope) error { return nil },
		EMsgGSStatusReply: nil,
	})
	if err == nil {
		t.Fatal("expected error for nil handler")
	}
}

func TestDispatchTable_IsACopy(t *testing.T) {
	entries := map[EMsg]Handler{
		EMsgGSStatusReply: func(Dispatcher, *Envelope) error { return nil },
	}
	table, err := NewDispatchTable(entries)
	if err != nil {
		t.Fatalf("NewDispatchTable: %v", err)
	}
	entries[EMsgClientCMList] = func(Dispatcher, *Envelope) error { return nil }
	delete(entries, EMsgGSStatusReply)

	if _, ok := table.Lookup(EMsgClientCMList); ok {
		t.Error("table picked up an entry added after construction")
	}
	if _, ok := table.Lookup(EMsgGSStatusReply); !ok {
		t.Error("table lost an entry removed from the source map")
	}
}

func TestDispatchTable_TypesSorted(t *testing.T) {
	noop := func(Dispatcher, *Envelope) error { return nil }
	table, _ := NewDispatchTable(map[EMsg]Handler{
		EMsgClientLogonGameServer: noop,
		EMsgMulti:                 noop,
		EMsgGSStatusReply:         noop,
	})
	got := table.Types()
	want := []EMsg{EMsgMulti, EMsgGSStatusReply, EMsgClientLogonGameServer}
	if len(got) != len(want) {
		t.Fatalf("Types() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Types() = %v, want %v", got, want)
		}
	}
}

func TestRouter_InvokesRegisteredHandlerOnce(t *testing.T) {
	calls := map[EMsg]int{}
	handler := func(_ Dispatcher, env *Envelope) error {
		calls[env.Type]++
		return nil
	}
	kinds := []EMsg{EMsgGSStatusReply, EMsgClientTicketAuthComplete, EMsgClientGetUserStatsResponse, EMsgClientServersAvailable}
	entries := map[EMsg]Handler{}
	for _, k := range kinds {
		entries[k] = handler
	}
	table, _ := NewDispatchTable(entries)
	r := NewRouter(table, WithMetrics(false))

	for _, k := range kinds {
		if err := r.Route(&Envelope{Type: k}); err != nil {
			t.Fatalf("Route(%s): %v", k, err)
		}
	}
	for _, k := range kinds {
		if calls[k] != 1 {
			t.Errorf("handler for %s called %d times, want 1", k, calls[k])
		}
	}
}

func TestRouter_UnregisteredIsSilent(t *testing.T) {
	invoked := false
	table, _ := NewDispatchTable(map[EMsg]Handler{
		EMsgGSStatusReply: func(Dispatcher, *Envelope) error { invoked = true; return nil },
	})
	reported := 0
	r := NewRouter(table, WithMetrics(false), WithErrorHook(func(*Envelope, error) { reported++ }))

	if err := r.Route(&Envelope{Type: EMsg(424242)}); err != nil {
		t.Fatalf("unregistered type returned %v", err)
	}
	if invoked || reported != 0 {
		t.Fatalf("invoked=%v reported=%d, want nothing", invoked, reported)
	}
}

func TestRouter_ReportsTopLevelErrorOnce(t *testing.T) {
	boom := errors.New("boom")
	table, _ := NewDispatchTable(map[EMsg]Handler{
		EMsgGSStatusReply: func(Dispatcher, *Envelope) error { return boom },
	})
	var got []error
	r := NewRouter(table, WithMetrics(false), WithErrorHook(func(_ *Envelope, err error) { got = append(got, err) }))

	if err := r.Route(&Envelope{Type: EMsgGSStatusReply}); !errors.Is(err, boom) {
		t.Fatalf("Route error = %v, want boom", err)
	}
	if len(got) != 1 || !errors.Is(got[0], boom) {
		t.Fatalf("hook saw %v", got)
	}
	if ErrorKind(boom) != "handler" {
		t.Errorf("ErrorKind(boom) = %q", ErrorKind(boom))
	}
}

func TestRouter_DepthIncreasesOnReentry(t *testing.T) {
	const leaf = EMsg(9001)
	var depths []int
	table, _ := NewDispatchTable(map[EMsg]Handler{
		EMsgMulti: func(d Dispatcher, env *Envelope) error {
			depths = append(depths, d.Depth())
			return d.Route(&Envelope{Type: leaf})
		},
		leaf: func(d Dispatcher, env *Envelope) error {
			depths = append(depths, d.Depth())
			return nil
		},
	})
	r := NewRouter(table, WithMetrics(false))
	if err := r.Route(&Envelope{Type: EMsgMulti}); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(depths) != 2 || depths[0] != 0 || depths[1] != 1 {
		t.Fatalf("depths = %v, want [0 1]", depths)
	}
}

func TestErrorsMatchByCode(t *testing.T) {
	err := ErrFrameTruncated.withf(nil, "frame %d", 3)
	if !errors.Is(err, ErrFrameTruncated) {
		t.Fatal("contextual error does not match its sentinel")
	}
	if errors.Is(err, ErrDecompression) {
		t.Fatal("errors with different codes matched")
	}
	if ErrorKind(err) != "frame_truncated" {
		t.Fatalf("ErrorKind = %q", ErrorKind(err))
	}
	if err.Code() != 2004 {
		t.Fatalf("Code = %d", err.Code())
	}
}
