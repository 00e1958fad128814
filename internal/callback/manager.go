package callback

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tuokri/SteamKit/internal/observe"
	"github.com/tuokri/SteamKit/pkg/logger"
)

type Handler func(Callback)

type handlerEntry struct {
	id uint64
	fn Handler
}

// Manager queues posted callbacks and delivers them to subscribers from Run,
// one at a time and in posting order.
type Manager struct {
	handlersMu sync.RWMutex
	handlers   map[Name][]handlerEntry
	all        []handlerEntry
	nextHID    uint64

	queue chan Callback
	log   *zap.Logger
}

func NewManager(buffer int) *Manager {
	if buffer <= 0 {
		buffer = 256
	}
	return &Manager{
		handlers: make(map[Name][]handlerEntry),
		queue:    make(chan Callback, buffer),
		log:      logger.Named("callback"),
	}
}

// Subscribe registers fn for callbacks named n.
func (m *Manager) Subscribe(n Name, fn Handler) { _ = m.SubscribeCancelable(n, fn) }

// SubscribeCancelable registers fn and returns a function that removes it.
func (m *Manager) SubscribeCancelable(n Name, fn Handler) (cancel func()) {
	m.handlersMu.Lock()
	m.nextHID++
	id := m.nextHID
	m.handlers[n] = append(m.handlers[n], handlerEntry{id: id, fn: fn})
	m.handlersMu.Unlock()

	return func() {
		m.handlersMu.Lock()
		defer m.handlersMu.Unlock()
		filtered := removeEntry(m.handlers[n], id)
		if len(filtered) == 0 {
			delete(m.handlers, n)
		} else {
			m.handlers[n] = filtered
		}
	}
}

// SubscribeAll registers fn for every callback.
func (m *Manager) SubscribeAll(fn Handler) (cancel func()) {
	m.handlersMu.Lock()
	m.nextHID++
	id := m.nextHID
	m.all = append(m.all, handlerEntry{id: id, fn: fn})
	m.handlersMu.Unlock()

	return func() {
		m.handlersMu.Lock()
		m.all = removeEntry(m.all, id)
		m.handlersMu.Unlock()
	}
}

func removeEntry(entries []handlerEntry, id uint64) []handlerEntry {
	var out []handlerEntry
	for _, e := range entries {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}

// Post queues cb without blocking. When the queue is full cb is dropped.
func (m *Manager) Post(cb Callback) {
	select {
	case m.queue <- cb:
		observe.IncCallback(string(cb.Name()))
	default:
		m.log.Warn("callback_dropped", zap.String("name", string(cb.Name())))
	}
}

// Run delivers queued callbacks until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cb := <-m.queue:
			m.deliver(cb)
		}
	}
}

// Drain delivers everything currently queued and returns the count.
func (m *Manager) Drain() int {
	n := 0
	for {
		select {
		case cb := <-m.queue:
			m.deliver(cb)
			n++
		default:
			return n
		}
	}
}

func (m *Manager) deliver(cb Callback) {
	m.handlersMu.RLock()
	var copied []handlerEntry
	copied = append(copied, m.handlers[cb.Name()]...)
	copied = append(copied, m.all...)
	m.handlersMu.RUnlock()

	for _, entry := range copied {
		m.call(entry.fn, cb)
	}
}

func (m *Manager) call(fn Handler, cb Callback) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("callback_handler_panic", zap.String("name", string(cb.Name())), zap.Any("panic", r))
		}
	}()
	fn(cb)
}
