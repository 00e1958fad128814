package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"testing"

	"github.com/tuokri/SteamKit/internal/steammsg"
)

const testLeaf EMsg = 9001

// rawParse wraps a frame as a leaf envelope without interpreting it.
func rawParse(b []byte) (*Envelope, error) {
	return &Envelope{Type: testLeaf, IsProto: true, Payload: b}, nil
}

type recorder struct {
	payloads [][]byte
	reports  []error
}

func (rec *recorder) router(t *testing.T, parse ParseFunc, maxDepth int, opts ...BatchOption) *Router {
	t.Helper()
	dec := NewBatchDecoder(parse, append([]BatchOption{WithBatchMetrics(false)}, opts...)...)
	table, err := NewDispatchTable(map[EMsg]Handler{
		EMsgMulti: dec.Handle,
		testLeaf: func(_ Dispatcher, env *Envelope) error {
			rec.payloads = append(rec.payloads, append([]byte(nil), env.Payload...))
			return nil
		},
	})
	if err != nil {
		t.Fatalf("NewDispatchTable: %v", err)
	}
	return NewRouter(table,
		WithMaxDepth(maxDepth),
		WithMetrics(false),
		WithErrorHook(func(_ *Envelope, err error) { rec.reports = append(rec.reports, err) }),
	)
}

func multiEnvelope(body []byte, sizeUnzipped uint32) *Envelope {
	m := steammsg.Multi{SizeUnzipped: sizeUnzipped, MessageBody: body}
	return &Envelope{Type: EMsgMulti, IsProto: true, Header: NewHeader(), Payload: m.Marshal()}
}

func TestBatch_ABCAndXY(t *testing.T) {
	body := []byte{0x03, 0, 0, 0, 'A', 'B', 'C', 0x02, 0, 0, 0, 'X', 'Y'}

	frames, err := ReadFrames(body)
	if err != nil {
		t.Fatalf("ReadFrames: %v", err)
	}
	if len(frames) != 2 || string(frames[0]) != "ABC" || string(frames[1]) != "XY" {
		t.Fatalf("frames = %q", frames)
	}

	var rec recorder
	r := rec.router(t, rawParse, DefaultMaxDepth)
	if err := r.Route(multiEnvelope(body, 0)); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(rec.payloads) != 2 || string(rec.payloads[0]) != "ABC" || string(rec.payloads[1]) != "XY" {
		t.Fatalf("routed = %q", rec.payloads)
	}
}

func TestBatch_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, compress := range []bool{false, true} {
		t.Run(fmt.Sprintf("compress=%v", compress), func(t *testing.T) {
			n := 1 + rng.Intn(64)
			want := make([][]byte, n)
			for i := range want {
				want[i] = make([]byte, rng.Intn(512))
				rng.Read(want[i])
			}

			env, err := NewBatchEnvelope(want, compress)
			if err != nil {
				t.Fatalf("NewBatchEnvelope: %v", err)
			}
			var rec recorder
			if err := rec.router(t, rawParse, DefaultMaxDepth).Route(env); err != nil {
				t.Fatalf("Route: %v", err)
			}
			if len(rec.payloads) != n {
				t.Fatalf("routed %d frames, want %d", len(rec.payloads), n)
			}
			for i := range want {
				if !bytes.Equal(rec.payloads[i], want[i]) {
					t.Fatalf("frame %d mismatch", i)
				}
			}
		})
	}
}

func TestBatch_EmptyBody(t *testing.T) {
	env, err := NewBatchEnvelope(nil, true)
	if err != nil {
		t.Fatalf("NewBatchEnvelope: %v", err)
	}
	var rec recorder
	if err := rec.router(t, rawParse, DefaultMaxDepth).Route(env); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(rec.payloads) != 0 || len(rec.reports) != 0 {
		t.Fatalf("payloads=%d reports=%v", len(rec.payloads), rec.reports)
	}
}

func TestBatch_TruncatedLastFrame(t *testing.T) {
	cases := map[string][]byte{
		"length past end": {0x03, 0, 0, 0, 'A', 'B', 'C', 0x0A, 0, 0, 0, 'X', 'Y'},
		"short prefix":    {0x03, 0, 0, 0, 'A', 'B', 'C', 0x02, 0},
		"huge length":     {0x03, 0, 0, 0, 'A', 'B', 'C', 0xFF, 0xFF, 0xFF, 0xFF},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var rec recorder
			err := rec.router(t, rawParse, DefaultMaxDepth).Route(multiEnvelope(body, 0))
			if !errors.Is(err, ErrFrameTruncated) {
				t.Fatalf("Route error = %v, want ErrFrameTruncated", err)
			}
			if len(rec.payloads) != 1 || string(rec.payloads[0]) != "ABC" {
				t.Fatalf("routed = %q, want [ABC]", rec.payloads)
			}
		})
	}
}

func TestBatch_CorruptGzipHeader(t *testing.T) {
	payload, err := EncodeBatch([][]byte{[]byte("ABC"), []byte("XY")}, true)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	var m steammsg.Multi
	if err := m.Unmarshal(payload); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	body := append([]byte(nil), m.MessageBody...)
	body[0] ^= 0xFF

	var rec recorder
	err = rec.router(t, rawParse, DefaultMaxDepth).Route(multiEnvelope(body, m.SizeUnzipped))
	if !errors.Is(err, ErrDecompression) {
		t.Fatalf("Route error = %v, want ErrDecompression", err)
	}
	if len(rec.payloads) != 0 {
		t.Fatalf("routed %d frames after decompression failure", len(rec.payloads))
	}
}

func TestBatch_CorruptGzipTrailerDispatchesNothing(t *testing.T) {
	payload, _ := EncodeBatch([][]byte{[]byte("ABC"), []byte("XY")}, true)
	var m steammsg.Multi
	_ = m.Unmarshal(payload)
	body := append([]byte(nil), m.MessageBody...)
	body[len(body)-5] ^= 0xFF // crc32

	var rec recorder
	err := rec.router(t, rawParse, DefaultMaxDepth).Route(multiEnvelope(body, m.SizeUnzipped))
	if !errors.Is(err, ErrDecompression) {
		t.Fatalf("Route error = %v, want ErrDecompression", err)
	}
	if len(rec.payloads) != 0 {
		t.Fatalf("routed %d frames after checksum failure", len(rec.payloads))
	}
}

func TestBatch_MaxUnzipped(t *testing.T) {
	env, _ := NewBatchEnvelope([][]byte{make([]byte, 100)}, true)
	var rec recorder
	err := rec.router(t, rawParse, DefaultMaxDepth, WithMaxUnzipped(16)).Route(env)
	if !errors.Is(err, ErrDecompression) {
		t.Fatalf("Route error = %v, want ErrDecompression", err)
	}
}

func TestBatch_RejectsLegacyEnvelope(t *testing.T) {
	env := multiEnvelope([]byte{0x01, 0, 0, 0, 'A'}, 0)
	env.IsProto = false

	var rec recorder
	err := rec.router(t, rawParse, DefaultMaxDepth).Route(env)
	if !errors.Is(err, ErrNotStructured) {
		t.Fatalf("Route error = %v, want ErrNotStructured", err)
	}
	if len(rec.payloads) != 0 || len(rec.reports) != 1 {
		t.Fatalf("payloads=%d reports=%d", len(rec.payloads), len(rec.reports))
	}
}

func TestBatch_MalformedMulti(t *testing.T) {
	env := &Envelope{Type: EMsgMulti, IsProto: true, Payload: []byte{0x12, 0x7F}}
	var rec recorder
	if err := rec.router(t, rawParse, DefaultMaxDepth).Route(env); !errors.Is(err, ErrMalformedBatch) {
		t.Fatalf("Route error = %v, want ErrMalformedBatch", err)
	}
}

func TestBatch_SkipsUnparseableFrame(t *testing.T) {
	parse := func(b []byte) (*Envelope, error) {
		if string(b) == "bad" {
			return nil, errors.New("bad frame")
		}
		return rawParse(b)
	}
	env, _ := NewBatchEnvelope([][]byte{[]byte("one"), []byte("bad"), []byte("two")}, false)

	var rec recorder
	if err := rec.router(t, parse, DefaultMaxDepth).Route(env); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(rec.payloads) != 2 || string(rec.payloads[1]) != "two" {
		t.Fatalf("routed = %q", rec.payloads)
	}
	if len(rec.reports) != 1 || !errors.Is(rec.reports[0], ErrUnparseableFrame) {
		t.Fatalf("reports = %v", rec.reports)
	}
}

// leafPacket is a serialized structured packet of kind testLeaf.
func leafPacket(id byte) []byte {
	return Serialize(&Envelope{Type: testLeaf, IsProto: true, Header: NewHeader(), Payload: []byte{id}})
}

func batchPacket(t *testing.T, frames ...[]byte) []byte {
	t.Helper()
	env, err := NewBatchEnvelope(frames, true)
	if err != nil {
		t.Fatalf("NewBatchEnvelope: %v", err)
	}
	return Serialize(env)
}

func TestBatch_NestedDepthFirst(t *testing.T) {
	inner := batchPacket(t, leafPacket(2), batchPacket(t, leafPacket(3)), leafPacket(4))
	outer, err := ParsePacket(batchPacket(t, leafPacket(1), inner, leafPacket(5)))
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}

	var rec recorder
	if err := rec.router(t, ParsePacket, DefaultMaxDepth).Route(outer); err != nil {
		t.Fatalf("Route: %v", err)
	}
	var order []byte
	for _, p := range rec.payloads {
		order = append(order, p[0])
	}
	if !bytes.Equal(order, []byte{1, 2, 3, 4, 5}) {
		t.Fatalf("leaf order = %v, want [1 2 3 4 5]", order)
	}
}

// nested returns a packet wrapping leaf in levels batches.
func nested(t *testing.T, levels int, leaf []byte) []byte {
	pkt := leaf
	for i := 0; i < levels; i++ {
		pkt = batchPacket(t, pkt)
	}
	return pkt
}

func TestBatch_NestingAtLimit(t *testing.T) {
	const maxDepth = 3
	// batches at depths 0..2, leaf at depth 3
	env, _ := ParsePacket(nested(t, maxDepth, leafPacket(7)))

	var rec recorder
	if err := rec.router(t, ParsePacket, maxDepth).Route(env); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(rec.payloads) != 1 || rec.payloads[0][0] != 7 {
		t.Fatalf("routed = %v", rec.payloads)
	}
}

func TestBatch_NestingLimitExceeded(t *testing.T) {
	const maxDepth = 3
	deep := nested(t, maxDepth+1, leafPacket(9))
	env, _ := ParsePacket(batchPacket(t, leafPacket(1), deep, leafPacket(2)))

	var rec recorder
	err := rec.router(t, ParsePacket, maxDepth).Route(env)
	if !errors.Is(err, ErrNestingLimit) {
		t.Fatalf("Route error = %v, want ErrNestingLimit", err)
	}
	// the limit aborts the remaining decode all the way up
	if len(rec.payloads) != 1 || rec.payloads[0][0] != 1 {
		t.Fatalf("routed = %v, want only leaf 1", rec.payloads)
	}
	if len(rec.reports) != 1 {
		t.Fatalf("reported %d errors, want 1", len(rec.reports))
	}
}

func TestBatch_VeryDeepNestingDoesNotOverflow(t *testing.T) {
	env, _ := ParsePacket(nested(t, 200, leafPacket(1)))
	var rec recorder
	if err := rec.router(t, ParsePacket, DefaultMaxDepth).Route(env); !errors.Is(err, ErrNestingLimit) {
		t.Fatalf("Route error = %v, want ErrNestingLimit", err)
	}
	if len(rec.payloads) != 0 {
		t.Fatalf("routed %d leaves", len(rec.payloads))
	}
}

func TestBatch_OversizedHintBoundsAllocation(t *testing.T) {
	payload, err := EncodeBatch([][]byte{[]byte("A")}, true)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	var m steammsg.Multi
	if err := m.Unmarshal(payload); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	var rec recorder
	r := rec.router(t, rawParse, DefaultMaxDepth)
	const routes = 10

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	for i := 0; i < routes; i++ {
		if err := r.Route(multiEnvelope(m.MessageBody, 0xFFFFFFFF)); err != nil {
			t.Fatalf("Route: %v", err)
		}
	}
	runtime.ReadMemStats(&after)

	if len(rec.payloads) != routes || len(rec.reports) != 0 {
		t.Fatalf("dispatch mismatch: got %d frames and %v, want %d frames", len(rec.payloads), rec.reports, routes)
	}
	const limit = 24 << 20
	if grown := after.TotalAlloc - before.TotalAlloc; grown > limit {
		t.Fatalf("allocation mismatch: %d routes allocated %d bytes, want at most %d", routes, grown, limit)
	}
}
