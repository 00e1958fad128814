package protocol

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/tuokri/SteamKit/internal/observe"
	"github.com/tuokri/SteamKit/pkg/logger"
)

// Handler processes one envelope. d routes envelopes produced while handling
// env one nesting level deeper.
type Handler func(d Dispatcher, env *Envelope) error

// Dispatcher is the routing capability handed to a Handler.
type Dispatcher interface {
	// Route dispatches env one level below the caller.
	Route(env *Envelope) error
	// Report sends a contained error to the diagnostic hook without
	// propagating it.
	Report(env *Envelope, err error)
	// Depth is the nesting level of the envelope currently being handled;
	// top-level packets are at depth 0.
	Depth() int
}

// DispatchTable maps EMsg to Handler. It cannot be changed after
// construction.
type DispatchTable struct {
	handlers map[EMsg]Handler
}

// NewDispatchTable copies entries into a new table. Nil handlers are
// rejected.
func NewDispatchTable(entries map[EMsg]Handler) (*DispatchTable, error) {
	handlers := make(map[EMsg]Handler, len(entries))
	for t, h := range entries {
		if h == nil {
			return nil, fmt.Errorf("protocol.NewDispatchTable: nil handler for %s", t)
		}
		handlers[t] = h
	}
	return &DispatchTable{handlers: handlers}, nil
}

// Lookup returns the handler registered for e.
func (t *DispatchTable) Lookup(e EMsg) (Handler, bool) {
	h, ok := t.handlers[e]
	return h, ok
}

// Types returns the registered kinds in ascending order.
func (t *DispatchTable) Types() []EMsg {
	types := make([]EMsg, 0, len(t.handlers))
	for e := range t.handlers {
		types = append(types, e)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Router dispatches envelopes through a DispatchTable. A Router is used by a
// single connection's read loop and is not safe for concurrent Route calls.
type Router struct {
	table    *DispatchTable
	maxDepth int
	log      *zap.Logger
	onError  func(env *Envelope, err error)
	metrics  bool
}

// NewRouter returns a router over table with DefaultMaxDepth unless an
// option overrides it.
func NewRouter(table *DispatchTable, opts ...Option) *Router {
	r := &Router{
		table:    table,
		maxDepth: DefaultMaxDepth,
		log:      logger.Named("router"),
		metrics:  true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route dispatches a top-level envelope. A kind with no handler is ignored.
// A returned error has already been reported.
func (r *Router) Route(env *Envelope) error {
	err := r.route(0, env)
	if err != nil {
		r.report(env, err)
	}
	return err
}

// Table returns the dispatch table the router was built with.
func (r *Router) Table() *DispatchTable { return r.table }

// Report records an inbound error that happened outside routing, such as a
// packet that failed to parse. It goes to the same metric, log and hook as
// routing errors.
func (r *Router) Report(env *Envelope, err error) { r.report(env, err) }

func (r *Router) route(depth int, env *Envelope) error {
	if depth > r.maxDepth {
		return ErrNestingLimit.withf(nil, "%s at depth %d, limit %d", env.Type, depth, r.maxDepth)
	}
	h, ok := r.table.Lookup(env.Type)
	if !ok {
		if r.metrics {
			observe.IncUnhandled()
		}
		r.log.Debug("unhandled", zap.Stringer("emsg", env.Type), zap.Int("depth", depth))
		return nil
	}
	if r.metrics {
		observe.IncRouted(env.Type.String())
	}
	return h(dispatcher{r: r, depth: depth}, env)
}

func (r *Router) report(env *Envelope, err error) {
	kind := ErrorKind(err)
	if r.metrics {
		observe.IncDecodeError(kind)
	}
	r.log.Warn("inbound_error",
		zap.Stringer("emsg", env.Type),
		zap.String("kind", kind),
		zap.Error(err))
	if r.onError != nil {
		r.onError(env, err)
	}
}

type dispatcher struct {
	r     *Router
	depth int
}

func (d dispatcher) Route(env *Envelope) error       { return d.r.route(d.depth+1, env) }
func (d dispatcher) Report(env *Envelope, err error) { d.r.report(env, err) }
func (d dispatcher) Depth() int                      { return d.depth }
