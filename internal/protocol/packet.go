package protocol

import (
	"encoding/binary"

	"github.com/tuokri/SteamKit/internal/steammsg"
)

// ParseFunc turns one raw packet into an Envelope. It is used for packets
// read off the transport and for frames inside a batch.
type ParseFunc func(data []byte) (*Envelope, error)

const (
	plainHeaderSize    = 20 // emsg, target job, source job
	extendedHeaderSize = 36
	extendedHeaderVer  = 2
	extendedCanary     = 239
)

// ParsePacket decodes a raw packet. The returned Payload aliases data.
//
// Structured packets carry a length-prefixed CMsgProtoBufHeader. Legacy
// packets carry ExtendedClientMsgHdr, except the channel-encrypt messages
// which carry the short MsgHdr.
func ParsePacket(data []byte) (*Envelope, error) {
	if len(data) < 4 {
		return nil, ErrMalformedPacket.withf(nil, "%d bytes, need 4 for emsg", len(data))
	}
	t, isProto := SplitRaw(binary.LittleEndian.Uint32(data))
	env := &Envelope{Type: t, IsProto: isProto}

	switch {
	case isProto:
		if len(data) < 8 {
			return nil, ErrMalformedPacket.withf(nil, "%s: %d bytes, need 8 for header length", t, len(data))
		}
		hdrLen := int32(binary.LittleEndian.Uint32(data[4:]))
		if hdrLen < 0 || int64(hdrLen) > int64(len(data)-8) {
			return nil, ErrMalformedPacket.withf(nil, "%s: header length %d exceeds %d bytes", t, hdrLen, len(data)-8)
		}
		var ph steammsg.ProtoHeader
		if err := ph.Unmarshal(data[8 : 8+hdrLen]); err != nil {
			return nil, ErrMalformedPacket.withf(err, "%s: header", t)
		}
		env.Header = headerFromProto(&ph)
		env.Payload = data[8+hdrLen:]

	case t.usesPlainHeader():
		if len(data) < plainHeaderSize {
			return nil, ErrMalformedPacket.withf(nil, "%s: %d bytes, need %d", t, len(data), plainHeaderSize)
		}
		env.Header = NewHeader()
		env.Header.TargetJobID = binary.LittleEndian.Uint64(data[4:])
		env.Header.SourceJobID = binary.LittleEndian.Uint64(data[12:])
		env.Payload = data[plainHeaderSize:]

	default:
		if len(data) < extendedHeaderSize {
			return nil, ErrMalformedPacket.withf(nil, "%s: %d bytes, need %d", t, len(data), extendedHeaderSize)
		}
		if size := data[4]; size != extendedHeaderSize {
			return nil, ErrMalformedPacket.withf(nil, "%s: extended header size %d", t, size)
		}
		env.Header = NewHeader()
		env.Header.TargetJobID = binary.LittleEndian.Uint64(data[7:])
		env.Header.SourceJobID = binary.LittleEndian.Uint64(data[15:])
		env.Header.SteamID = binary.LittleEndian.Uint64(data[24:])
		env.Header.SessionID = int32(binary.LittleEndian.Uint32(data[32:]))
		env.Payload = data[extendedHeaderSize:]
	}
	return env, nil
}

// Serialize encodes env in the header layout ParsePacket expects for its
// kind and encoding flag.
func Serialize(env *Envelope) []byte {
	h := &env.Header
	switch {
	case env.IsProto:
		ph := h.toProto().Marshal()
		out := make([]byte, 8, 8+len(ph)+len(env.Payload))
		binary.LittleEndian.PutUint32(out, JoinRaw(env.Type, true))
		binary.LittleEndian.PutUint32(out[4:], uint32(len(ph)))
		out = append(out, ph...)
		return append(out, env.Payload...)

	case env.Type.usesPlainHeader():
		out := make([]byte, plainHeaderSize, plainHeaderSize+len(env.Payload))
		binary.LittleEndian.PutUint32(out, uint32(env.Type))
		binary.LittleEndian.PutUint64(out[4:], h.TargetJobID)
		binary.LittleEndian.PutUint64(out[12:], h.SourceJobID)
		return append(out, env.Payload...)

	default:
		out := make([]byte, extendedHeaderSize, extendedHeaderSize+len(env.Payload))
		binary.LittleEndian.PutUint32(out, uint32(env.Type))
		out[4] = extendedHeaderSize
		binary.LittleEndian.PutUint16(out[5:], extendedHeaderVer)
		binary.LittleEndian.PutUint64(out[7:], h.TargetJobID)
		binary.LittleEndian.PutUint64(out[15:], h.SourceJobID)
		out[23] = extendedCanary
		binary.LittleEndian.PutUint64(out[24:], h.SteamID)
		binary.LittleEndian.PutUint32(out[32:], uint32(h.SessionID))
		return append(out, env.Payload...)
	}
}
