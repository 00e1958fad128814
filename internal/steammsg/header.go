package steammsg

import "github.com/tuokri/SteamKit/internal/pbwire"

// ProtoHeader is CMsgProtoBufHeader, the header of every structured message.
type ProtoHeader struct {
	SteamID       uint64
	SessionID     int32
	RoutingAppID  uint32
	SourceJobID   uint64
	TargetJobID   uint64
	TargetJobName string
	EResult       EResult
	ErrorMessage  string
}

// NewProtoHeader returns a header with the protobuf defaults applied.
func NewProtoHeader() ProtoHeader {
	return ProtoHeader{
		SourceJobID: InvalidJobID,
		TargetJobID: InvalidJobID,
		EResult:     EResultFail,
	}
}

func (h *ProtoHeader) Marshal() []byte {
	var b pbwire.Builder
	b.Fixed64(1, h.SteamID).
		Int32(2, h.SessionID).
		Uint32(3, h.RoutingAppID)
	if h.SourceJobID != InvalidJobID {
		b.Fixed64(10, h.SourceJobID)
	}
	if h.TargetJobID != InvalidJobID {
		b.Fixed64(11, h.TargetJobID)
	}
	b.String(12, h.TargetJobName)
	if h.EResult != EResultFail {
		b.Int32(13, int32(h.EResult))
	}
	b.String(14, h.ErrorMessage)
	return b.Bytes()
}

func (h *ProtoHeader) Unmarshal(data []byte) error {
	*h = NewProtoHeader()
	return pbwire.Range(data, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			h.SteamID = f.Fixed64
		case 2:
			h.SessionID = f.Int32()
		case 3:
			h.RoutingAppID = f.Uint32()
		case 10:
			h.SourceJobID = f.Fixed64
		case 11:
			h.TargetJobID = f.Fixed64
		case 12:
			h.TargetJobName = f.String()
		case 13:
			h.EResult = EResult(f.Int32())
		case 14:
			h.ErrorMessage = f.String()
		}
		return nil
	})
}
