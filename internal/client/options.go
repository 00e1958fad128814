package client

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tuokri/SteamKit/internal/callback"
	"github.com/tuokri/SteamKit/internal/config"
	"github.com/tuokri/SteamKit/internal/protocol"
	"github.com/tuokri/SteamKit/internal/serverlist"
	"github.com/tuokri/SteamKit/internal/transport"
)

// Dialer opens a transport connection. transport.Dial is the default.
type Dialer func(ctx context.Context, proto, addr string, opt transport.Options) (transport.Connection, error)

type Option func(*CMClient)

// WithModules adds handler modules. Their handlers join the dispatch table
// built by New.
func WithModules(mods ...Module) Option {
	return func(c *CMClient) { c.modules = append(c.modules, mods...) }
}

// WithSink posts every callback to s as well as the client's own manager.
func WithSink(s callback.Sink) Option {
	return func(c *CMClient) { c.sinks = append(c.sinks, s) }
}

func WithServerList(l *serverlist.List) Option {
	return func(c *CMClient) { c.servers = l }
}

func WithDialer(d Dialer) Option {
	return func(c *CMClient) { c.dial = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *CMClient) {
		if l != nil {
			c.log = l
		}
	}
}

// WithSendRate limits outgoing packets to r per second with the given burst.
// r == 0 disables limiting.
func WithSendRate(r float64, burst int) Option {
	return func(c *CMClient) {
		c.sendRate = r
		c.sendBurst = burst
	}
}

func WithMaxDepth(n int) Option {
	return func(c *CMClient) { c.routerOpts = append(c.routerOpts, protocol.WithMaxDepth(n)) }
}

func WithMaxUnzipped(n int64) Option {
	return func(c *CMClient) { c.batchOpts = append(c.batchOpts, protocol.WithMaxUnzipped(n)) }
}

func WithTransportOptions(o transport.Options) Option {
	return func(c *CMClient) { c.transportOpts = o }
}

func WithConnectTimeout(d time.Duration) Option {
	return func(c *CMClient) {
		if d > 0 {
			c.connectTimeout = d
		}
	}
}

// WithErrorHook observes every inbound error the router reports.
func WithErrorHook(fn func(env *protocol.Envelope, err error)) Option {
	return func(c *CMClient) { c.routerOpts = append(c.routerOpts, protocol.WithErrorHook(fn)) }
}

// FromConfig applies the settings of cfg that the client owns.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithSendRate(cfg.SendRate, cfg.SendBurst),
		WithMaxDepth(cfg.MaxNestingDepth),
		WithMaxUnzipped(int64(cfg.MaxUnzippedSize)),
		WithConnectTimeout(cfg.ConnectTimeout),
		WithTransportOptions(transport.Options{
			OutBuffer:    cfg.SendBuffer,
			MaxFrameSize: cfg.MaxFrameSize,
		}),
	}
}
