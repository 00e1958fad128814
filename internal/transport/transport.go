// Package transport carries raw CM packets over TCP or WebSocket.
package transport

import (
	"context"
	"net"
	"strings"
)

const (
	Tcp       = "tcp"
	WebSocket = "websocket"
)

// Connection is one client connection to a CM. Packets are opaque bytes;
// parsing happens above this layer.
type Connection interface {
	ID() string
	// Run blocks, handing every received packet to onPacket from a single
	// goroutine, until ctx is done or the connection fails. The connection
	// is closed when Run returns.
	Run(ctx context.Context, onPacket func(packet []byte)) error
	// Send queues a packet without blocking.
	Send(packet []byte) error
	Close() error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// Dial connects to addr using the named protocol.
func Dial(ctx context.Context, protocol, addr string, opt Options) (Connection, error) {
	switch strings.ToLower(protocol) {
	case Tcp, "":
		return DialTCP(ctx, addr, opt)
	case WebSocket:
		return DialWebSocket(ctx, addr, opt)
	default:
		return nil, ErrUnknownProtocol.withContext("%q", protocol)
	}
}
