package protocol

import "net"

// Sender is the outbound side of a CM connection as seen by handlers and
// modules.
type Sender interface {
	Send(env *Envelope) error
	IsConnected() bool
	// LocalIP is the local address of the current connection, or nil.
	LocalIP() net.IP
}
