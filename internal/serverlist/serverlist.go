// Package serverlist keeps the set of known CM endpoints and hands them out
// round-robin, skipping servers recently marked bad.
package serverlist

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/tuokri/SteamKit/internal/steammsg"
)

type Protocol string

const (
	TCP       Protocol = "tcp"
	WebSocket Protocol = "websocket"
)

// ServerRecord is one CM endpoint.
type ServerRecord struct {
	Addr     string   `json:"addr"` // host:port
	Protocol Protocol `json:"protocol"`
}

func (r ServerRecord) String() string { return string(r.Protocol) + "://" + r.Addr }

// Provider persists the server list between runs.
type Provider interface {
	Fetch(ctx context.Context) ([]ServerRecord, error)
	Update(ctx context.Context, servers []ServerRecord) error
}

// FromCMList converts a CM-pushed list. Addresses are host-order IPv4.
func FromCMList(msg *steammsg.ClientCMList) []ServerRecord {
	var out []ServerRecord
	for i, a := range msg.Addresses {
		if i >= len(msg.Ports) {
			break
		}
		ip := net.IPv4(byte(a>>24), byte(a>>16), byte(a>>8), byte(a))
		out = append(out, ServerRecord{
			Addr:     net.JoinHostPort(ip.String(), strconv.Itoa(int(msg.Ports[i]))),
			Protocol: TCP,
		})
	}
	for _, host := range msg.WebSocketAddresses {
		addr := host
		if _, _, err := net.SplitHostPort(host); err != nil {
			addr = net.JoinHostPort(host, "443")
		}
		out = append(out, ServerRecord{Addr: addr, Protocol: WebSocket})
	}
	return out
}

type entry struct {
	rec      ServerRecord
	badUntil time.Time
}

// List is safe for concurrent use.
type List struct {
	mu       sync.Mutex
	servers  []entry
	next     int
	provider Provider
	now      func() time.Time
}

// NewList returns an empty list backed by p. p may be nil.
func NewList(p Provider) *List {
	return &List{provider: p, now: time.Now}
}

// Load replaces the in-memory list with the provider's.
func (l *List) Load(ctx context.Context) error {
	if l.provider == nil {
		return nil
	}
	recs, err := l.provider.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("serverlist.Load: %w", err)
	}
	l.set(recs)
	return nil
}

// Replace installs servers and persists them through the provider.
func (l *List) Replace(ctx context.Context, servers []ServerRecord) error {
	l.set(servers)
	if l.provider == nil {
		return nil
	}
	if err := l.provider.Update(ctx, servers); err != nil {
		return fmt.Errorf("serverlist.Replace: %w", err)
	}
	return nil
}

func (l *List) set(recs []ServerRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[ServerRecord]bool, len(recs))
	l.servers = l.servers[:0]
	for _, r := range recs {
		if seen[r] {
			continue
		}
		seen[r] = true
		l.servers = append(l.servers, entry{rec: r})
	}
	l.next = 0
}

// Next returns the next usable server for proto. An empty proto matches any.
// When every matching server is marked bad, the one whose mark expires
// first is returned.
func (l *List) Next(proto Protocol) (ServerRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.servers)
	now := l.now()
	fallback := -1
	for i := 0; i < n; i++ {
		idx := (l.next + i) % n
		e := l.servers[idx]
		if proto != "" && e.rec.Protocol != proto {
			continue
		}
		if e.badUntil.After(now) {
			if fallback < 0 || e.badUntil.Before(l.servers[fallback].badUntil) {
				fallback = idx
			}
			continue
		}
		l.next = idx + 1
		return e.rec, true
	}
	if fallback >= 0 {
		l.next = fallback + 1
		return l.servers[fallback].rec, true
	}
	return ServerRecord{}, false
}

// MarkBad skips rec for d.
func (l *List) MarkBad(rec ServerRecord, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.servers {
		if l.servers[i].rec == rec {
			l.servers[i].badUntil = l.now().Add(d)
		}
	}
}

func (l *List) All() []ServerRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ServerRecord, len(l.servers))
	for i, e := range l.servers {
		out[i] = e.rec
	}
	return out
}

// MemoryProvider keeps the list in process memory.
type MemoryProvider struct {
	mu      sync.Mutex
	servers []ServerRecord
}

func (m *MemoryProvider) Fetch(context.Context) ([]ServerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ServerRecord(nil), m.servers...), nil
}

func (m *MemoryProvider) Update(_ context.Context, servers []ServerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append([]ServerRecord(nil), servers...)
	return nil
}
