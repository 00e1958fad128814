// Package steammsg declares the message bodies this client exchanges with a
// Steam CM. Structured bodies use the protobuf wire format (see pbwire);
// legacy bodies are fixed little-endian structs followed by a free-form
// payload.
//
// Only the fields the client reads or writes are declared. Field numbers not
// listed here are skipped on decode.
package steammsg

// Message is implemented by every body type in this package.
type Message interface {
	Marshal() []byte
	Unmarshal(b []byte) error
}

// InvalidJobID marks an unset source or target job.
const InvalidJobID = ^uint64(0)

// CurrentProtocol is the logon protocol version sent by this client.
const CurrentProtocol uint32 = 65580

// PrivateIPObfuscationMask is XORed into the private IP sent at logon.
const PrivateIPObfuscationMask uint32 = 0xBAADF00D
