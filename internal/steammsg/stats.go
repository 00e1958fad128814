package steammsg

import (
	"fmt"

	"github.com/tuokri/SteamKit/internal/pbwire"
	"google.golang.org/protobuf/encoding/protowire"
)

// ClientGetUserStats is CMsgClientGetUserStats.
type ClientGetUserStats struct {
	GameID             uint64
	CRCStats           uint32
	SchemaLocalVersion int32
	SteamIDForUser     uint64
}

func (m *ClientGetUserStats) Marshal() []byte {
	var b pbwire.Builder
	b.Fixed64(1, m.GameID).
		Uint32(2, m.CRCStats).
		Int32(3, m.SchemaLocalVersion).
		Fixed64(4, m.SteamIDForUser)
	return b.Bytes()
}

func (m *ClientGetUserStats) Unmarshal(data []byte) error {
	*m = ClientGetUserStats{}
	return pbwire.Range(data, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.GameID = f.Fixed64
		case 2:
			m.CRCStats = f.Uint32()
		case 3:
			m.SchemaLocalVersion = f.Int32()
		case 4:
			m.SteamIDForUser = f.Fixed64
		}
		return nil
	})
}

type Stat struct {
	ID    uint32
	Value uint32
}

type AchievementBlock struct {
	AchievementID uint32
	UnlockTimes   []uint32
}

// ClientGetUserStatsResponse is CMsgClientGetUserStatsResponse.
type ClientGetUserStatsResponse struct {
	GameID            uint64
	EResult           EResult
	CRCStats          uint32
	Schema            []byte
	Stats             []Stat
	AchievementBlocks []AchievementBlock
}

func (m *ClientGetUserStatsResponse) Marshal() []byte {
	var b pbwire.Builder
	b.Fixed64(1, m.GameID).
		Int32(2, int32(m.EResult)).
		Uint32(3, m.CRCStats).
		RawBytes(4, m.Schema)
	for _, s := range m.Stats {
		var inner pbwire.Builder
		inner.Uint32(1, s.ID).Uint32(2, s.Value)
		b.Message(5, inner.Bytes())
	}
	for _, a := range m.AchievementBlocks {
		var inner pbwire.Builder
		inner.Uint32(1, a.AchievementID)
		// unlock times are positional, so zero entries are kept
		b.Message(6, appendFixed32s(inner.Bytes(), 2, a.UnlockTimes))
	}
	return b.Bytes()
}

func appendFixed32s(buf []byte, num protowire.Number, vs []uint32) []byte {
	for _, v := range vs {
		buf = protowire.AppendTag(buf, num, protowire.Fixed32Type)
		buf = protowire.AppendFixed32(buf, v)
	}
	return buf
}

func (m *ClientGetUserStatsResponse) Unmarshal(data []byte) error {
	*m = ClientGetUserStatsResponse{EResult: EResultFail}
	return pbwire.Range(data, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.GameID = f.Fixed64
		case 2:
			m.EResult = EResult(f.Int32())
		case 3:
			m.CRCStats = f.Uint32()
		case 4:
			m.Schema = f.Clone()
		case 5:
			var s Stat
			err := pbwire.Range(f.Bytes, func(g pbwire.Field) error {
				switch g.Num {
				case 1:
					s.ID = g.Uint32()
				case 2:
					s.Value = g.Uint32()
				}
				return nil
			})
			if err != nil {
				return err
			}
			m.Stats = append(m.Stats, s)
		case 6:
			var a AchievementBlock
			err := pbwire.Range(f.Bytes, func(g pbwire.Field) error {
				switch g.Num {
				case 1:
					a.AchievementID = g.Uint32()
				case 2:
					times, err := fixed32s(g)
					if err != nil {
						return err
					}
					a.UnlockTimes = append(a.UnlockTimes, times...)
				}
				return nil
			})
			if err != nil {
				return err
			}
			m.AchievementBlocks = append(m.AchievementBlocks, a)
		}
		return nil
	})
}

// fixed32s accepts a repeated fixed32 occurrence in either packed or plain
// form.
func fixed32s(f pbwire.Field) ([]uint32, error) {
	switch f.Type {
	case protowire.Fixed32Type:
		return []uint32{f.Fixed32}, nil
	case protowire.BytesType:
		if len(f.Bytes)%4 != 0 {
			return nil, fmt.Errorf("steammsg: packed fixed32 field %d has %d bytes", f.Num, len(f.Bytes))
		}
		out := make([]uint32, 0, len(f.Bytes)/4)
		for b := f.Bytes; len(b) > 0; b = b[4:] {
			v, _ := protowire.ConsumeFixed32(b)
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("steammsg: field %d has wire type %d, want fixed32", f.Num, f.Type)
	}
}
