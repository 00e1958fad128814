package steammsg

import "github.com/tuokri/SteamKit/internal/pbwire"

// Multi is CMsgMulti: a batch of framed packets, gzip-compressed when
// SizeUnzipped is non-zero.
type Multi struct {
	SizeUnzipped uint32
	MessageBody  []byte
}

func (m *Multi) Marshal() []byte {
	var b pbwire.Builder
	b.Uint32(1, m.SizeUnzipped).RawBytes(2, m.MessageBody)
	return b.Bytes()
}

// Unmarshal leaves MessageBody aliasing data.
func (m *Multi) Unmarshal(data []byte) error {
	*m = Multi{}
	return pbwire.Range(data, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.SizeUnzipped = f.Uint32()
		case 2:
			m.MessageBody = f.Bytes
		}
		return nil
	})
}
