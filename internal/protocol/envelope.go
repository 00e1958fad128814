package protocol

import "github.com/tuokri/SteamKit/internal/steammsg"

// Header is the routing metadata of a packet. Legacy packets only fill the
// job ids and, for the extended header, SteamID and SessionID.
type Header struct {
	TargetJobID   uint64
	SourceJobID   uint64
	SteamID       uint64
	SessionID     int32
	RoutingAppID  uint32
	TargetJobName string
	EResult       steammsg.EResult
	ErrorMessage  string
}

// NewHeader returns a header with both job ids unset.
func NewHeader() Header {
	return Header{
		TargetJobID: steammsg.InvalidJobID,
		SourceJobID: steammsg.InvalidJobID,
		EResult:     steammsg.EResultFail,
	}
}

// Envelope is one routable message: kind, encoding flag, header and body.
//
// An Envelope is owned by whichever component is processing it and is not
// shared between goroutines. Payload may alias the buffer it was parsed from.
type Envelope struct {
	Type    EMsg
	IsProto bool
	Header  Header
	Payload []byte
}

// NewProtoEnvelope builds a structured envelope carrying body.
func NewProtoEnvelope(t EMsg, body steammsg.Message) *Envelope {
	return &Envelope{Type: t, IsProto: true, Header: NewHeader(), Payload: body.Marshal()}
}

// NewLegacyEnvelope builds an envelope with a fixed-layout body.
func NewLegacyEnvelope(t EMsg, body steammsg.Message) *Envelope {
	return &Envelope{Type: t, Header: NewHeader(), Payload: body.Marshal()}
}

// Decode unmarshals the payload into m.
func (e *Envelope) Decode(m steammsg.Message) error {
	return m.Unmarshal(e.Payload)
}

func (h *Header) toProto() *steammsg.ProtoHeader {
	return &steammsg.ProtoHeader{
		SteamID:       h.SteamID,
		SessionID:     h.SessionID,
		RoutingAppID:  h.RoutingAppID,
		SourceJobID:   h.SourceJobID,
		TargetJobID:   h.TargetJobID,
		TargetJobName: h.TargetJobName,
		EResult:       h.EResult,
		ErrorMessage:  h.ErrorMessage,
	}
}

func headerFromProto(p *steammsg.ProtoHeader) Header {
	return Header{
		TargetJobID:   p.TargetJobID,
		SourceJobID:   p.SourceJobID,
		SteamID:       p.SteamID,
		SessionID:     p.SessionID,
		RoutingAppID:  p.RoutingAppID,
		TargetJobName: p.TargetJobName,
		EResult:       p.EResult,
		ErrorMessage:  p.ErrorMessage,
	}
}
