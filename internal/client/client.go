// Package client owns a single CM connection: it reads packets off the
// transport, routes them through an immutable dispatch table and sends
// outgoing envelopes under a rate limit.
package client

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tuokri/SteamKit/internal/callback"
	"github.com/tuokri/SteamKit/internal/observe"
	"github.com/tuokri/SteamKit/internal/protocol"
	"github.com/tuokri/SteamKit/internal/serverlist"
	"github.com/tuokri/SteamKit/internal/steamid"
	"github.com/tuokri/SteamKit/internal/steammsg"
	"github.com/tuokri/SteamKit/internal/transport"
	"github.com/tuokri/SteamKit/pkg/logger"
)

var (
	ErrNotConnected     = errors.New("client: not connected")
	ErrAlreadyConnected = errors.New("client: already connected")
	ErrRateLimited      = errors.New("client: send rate exceeded")
	ErrNoServers        = errors.New("client: no servers available")
)

// Module contributes handlers to a CMClient. Setup is called once from New,
// after the dispatch table is built.
type Module interface {
	Setup(s protocol.Sender, sink callback.Sink)
	Handlers() map[protocol.EMsg]protocol.Handler
}

const (
	defaultHeartbeat = 9 * time.Second
	badServerPenalty = 2 * time.Minute
	maxConnectTries  = 3
)

// CMClient is safe for concurrent use. Inbound packets are handled on the
// connection's read goroutine, one at a time.
type CMClient struct {
	modules []Module
	sinks   []callback.Sink
	servers *serverlist.List
	dial    Dialer
	log     *zap.Logger

	sendRate       float64
	sendBurst      int
	routerOpts     []protocol.Option
	batchOpts      []protocol.BatchOption
	transportOpts  transport.Options
	connectTimeout time.Duration

	callbacks *callback.Manager
	router    *protocol.Router
	limiter   *rate.Limiter

	mu            sync.Mutex
	conn          transport.Connection
	server        serverlist.ServerRecord
	steamID       steamid.ID
	sessionID     int32
	stopHeartbeat context.CancelFunc
	userClosing   bool
	done          chan struct{}
}

func New(opts ...Option) (*CMClient, error) {
	c := &CMClient{
		dial: func(ctx context.Context, proto, addr string, opt transport.Options) (transport.Connection, error) {
			return transport.Dial(ctx, proto, addr, opt)
		},
		log:            logger.Named("client"),
		sendRate:       50,
		sendBurst:      20,
		connectTimeout: 5 * time.Second,
		callbacks:      callback.NewManager(256),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.servers == nil {
		c.servers = serverlist.NewList(nil)
	}
	if c.transportOpts.Logger == nil {
		c.transportOpts.Logger = c.log.Named("transport")
	}
	if c.sendRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.sendRate), c.sendBurst)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
	}

	batch := protocol.NewBatchDecoder(protocol.ParsePacket, c.batchOpts...)
	entries := map[protocol.EMsg]protocol.Handler{
		protocol.EMsgMulti:                  batch.Handle,
		protocol.EMsgClientLogOnResponse:    c.handleLogOnResponse,
		protocol.EMsgClientLoggedOff:        c.handleLoggedOff,
		protocol.EMsgClientCMList:           c.handleCMList,
		protocol.EMsgClientServersAvailable: c.handleServersAvailable,
	}
	for _, m := range c.modules {
		for t, h := range m.Handlers() {
			if _, dup := entries[t]; dup {
				return nil, fmt.Errorf("client.New: %s handled twice", t)
			}
			entries[t] = h
		}
	}
	table, err := protocol.NewDispatchTable(entries)
	if err != nil {
		return nil, fmt.Errorf("client.New: %w", err)
	}
	c.router = protocol.NewRouter(table, append([]protocol.Option{protocol.WithLogger(c.log.Named("router"))}, c.routerOpts...)...)

	for _, m := range c.modules {
		m.Setup(c, c)
	}
	return c, nil
}

// Callbacks is the manager every callback is posted to.
func (c *CMClient) Callbacks() *callback.Manager { return c.callbacks }

func (c *CMClient) Servers() *serverlist.List { return c.servers }

// Router exposes the dispatch path, mostly for tools that replay captured
// packets.
func (c *CMClient) Router() *protocol.Router { return c.router }

// Post implements callback.Sink for modules.
func (c *CMClient) Post(cb callback.Callback) {
	c.callbacks.Post(cb)
	for _, s := range c.sinks {
		s.Post(cb)
	}
}

// Connect dials rec and starts reading. It returns once the connection is
// established; ConnectedCallback is posted at the same time.
func (c *CMClient) Connect(ctx context.Context, rec serverlist.ServerRecord) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()
	conn, err := c.dial(dialCtx, string(rec.Protocol), rec.Addr, c.transportOpts)
	if err != nil {
		return fmt.Errorf("client.Connect: %s: %w", rec, err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrAlreadyConnected
	}
	c.conn = conn
	c.server = rec
	c.userClosing = false
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	observe.SetConnected(true)
	c.log.Info("connected", zap.Stringer("server", rec), zap.String("conn", conn.ID()))
	c.Post(&ConnectedCallback{Base: callback.NewBase(steammsg.InvalidJobID), Server: rec})

	go func() {
		defer close(done)
		err := conn.Run(context.Background(), c.onPacket)
		c.onDisconnected(conn, err)
	}()
	return nil
}

// ConnectAny tries servers from the list for proto, marking failures bad.
func (c *CMClient) ConnectAny(ctx context.Context, proto serverlist.Protocol) error {
	var lastErr error = ErrNoServers
	for i := 0; i < maxConnectTries; i++ {
		rec, ok := c.servers.Next(proto)
		if !ok {
			break
		}
		err := c.Connect(ctx, rec)
		if err == nil || errors.Is(err, ErrAlreadyConnected) {
			return err
		}
		c.log.Warn("connect_failed", zap.Stringer("server", rec), zap.Error(err))
		c.servers.MarkBad(rec, badServerPenalty)
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

// Disconnect closes the connection and waits for the read loop to finish.
func (c *CMClient) Disconnect() {
	c.mu.Lock()
	conn, done := c.conn, c.done
	c.userClosing = true
	c.mu.Unlock()
	if conn == nil {
		return
	}
	_ = conn.Close()
	<-done
}

func (c *CMClient) onDisconnected(conn transport.Connection, err error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	user := c.userClosing
	c.conn = nil
	c.steamID = 0
	c.sessionID = 0
	c.stopHeartbeatLocked()
	c.mu.Unlock()

	observe.SetConnected(false)
	cb := &DisconnectedCallback{Base: callback.NewBase(steammsg.InvalidJobID), UserInitiated: user}
	if err != nil && !errors.Is(err, context.Canceled) && !user {
		cb.Error = err.Error()
	}
	c.log.Info("disconnected", zap.Bool("user_initiated", user), zap.Error(err))
	c.Post(cb)
}

func (c *CMClient) onPacket(raw []byte) {
	env, err := protocol.ParsePacket(raw)
	if err != nil {
		// the hook still sees the kind when the emsg itself was readable
		bad := &protocol.Envelope{Header: protocol.NewHeader(), Payload: raw}
		if len(raw) >= 4 {
			bad.Type, bad.IsProto = protocol.SplitRaw(binary.LittleEndian.Uint32(raw))
		}
		c.router.Report(bad, err)
		return
	}
	// errors are reported by the router
	_ = c.router.Route(env)
}

func (c *CMClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// LocalIP is the local address of the current connection, or nil.
func (c *CMClient) LocalIP() net.IP {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	switch a := conn.LocalAddr().(type) {
	case *net.TCPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	}
	return nil
}

// SteamID is the id assigned at logon, or zero.
func (c *CMClient) SteamID() steamid.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.steamID
}

// Send serializes env and queues it without blocking. It fails with
// ErrRateLimited when the send budget is exhausted.
func (c *CMClient) Send(env *protocol.Envelope) error {
	if !c.limiter.Allow() {
		observe.IncSendDropped()
		return ErrRateLimited
	}
	return c.send(env)
}

// SendContext waits for send budget instead of failing.
func (c *CMClient) SendContext(ctx context.Context, env *protocol.Envelope) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.send(env)
}

func (c *CMClient) send(env *protocol.Envelope) error {
	c.mu.Lock()
	conn := c.conn
	if env.Header.SteamID == 0 {
		env.Header.SteamID = uint64(c.steamID)
	}
	if env.Header.SessionID == 0 {
		env.Header.SessionID = c.sessionID
	}
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	if err := conn.Send(protocol.Serialize(env)); err != nil {
		if errors.Is(err, transport.ErrBufferFull) {
			observe.IncSendDropped()
		}
		return fmt.Errorf("client.Send: %s: %w", env.Type, err)
	}
	observe.IncSent()
	c.log.Debug("sent", zap.Stringer("emsg", env.Type), zap.Bool("proto", env.IsProto))
	return nil
}

func (c *CMClient) startHeartbeat(interval time.Duration) {
	if interval <= 0 {
		interval = defaultHeartbeat
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.stopHeartbeatLocked()
	c.stopHeartbeat = cancel
	c.mu.Unlock()

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				env := protocol.NewProtoEnvelope(protocol.EMsgClientHeartBeat, &steammsg.ClientHeartBeat{})
				if err := c.SendContext(ctx, env); err != nil && ctx.Err() == nil {
					c.log.Warn("heartbeat_failed", zap.Error(err))
				}
			}
		}
	}()
}

func (c *CMClient) stopHeartbeatLocked() {
	if c.stopHeartbeat != nil {
		c.stopHeartbeat()
		c.stopHeartbeat = nil
	}
}
