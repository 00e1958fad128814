package steammsg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var errShortLegacyBody = errors.New("steammsg: legacy body too short")

// GSServerType is the legacy body announcing which app a game server serves
// and where it listens. The fixed struct is followed by the game directory
// and version, each NUL-terminated.
type GSServerType struct {
	AppIDServed   uint32
	Flags         uint32
	GameIPAddress uint32
	GamePort      uint16
	GameQueryPort uint16

	GameDirectory string
	Version       string
}

const gsServerTypeSize = 16

func (m *GSServerType) Marshal() []byte {
	out := make([]byte, gsServerTypeSize, gsServerTypeSize+len(m.GameDirectory)+len(m.Version)+2)
	binary.LittleEndian.PutUint32(out[0:], m.AppIDServed)
	binary.LittleEndian.PutUint32(out[4:], m.Flags)
	binary.LittleEndian.PutUint32(out[8:], m.GameIPAddress)
	binary.LittleEndian.PutUint16(out[12:], m.GamePort)
	binary.LittleEndian.PutUint16(out[14:], m.GameQueryPort)
	out = append(out, m.GameDirectory...)
	out = append(out, 0)
	out = append(out, m.Version...)
	out = append(out, 0)
	return out
}

func (m *GSServerType) Unmarshal(data []byte) error {
	*m = GSServerType{}
	if len(data) < gsServerTypeSize {
		return fmt.Errorf("%w: GSServerType has %d bytes", errShortLegacyBody, len(data))
	}
	m.AppIDServed = binary.LittleEndian.Uint32(data[0:])
	m.Flags = binary.LittleEndian.Uint32(data[4:])
	m.GameIPAddress = binary.LittleEndian.Uint32(data[8:])
	m.GamePort = binary.LittleEndian.Uint16(data[12:])
	m.GameQueryPort = binary.LittleEndian.Uint16(data[14:])

	rest := data[gsServerTypeSize:]
	m.GameDirectory, rest = cString(rest)
	m.Version, _ = cString(rest)
	return nil
}

// cString splits b at the first NUL. A missing terminator consumes all of b.
func cString(b []byte) (string, []byte) {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return string(b), nil
	}
	return string(b[:i]), b[i+1:]
}

// GSStatusReply is the legacy reply to GSServerType.
type GSStatusReply struct {
	IsSecure bool
}

func (m *GSStatusReply) Marshal() []byte {
	if m.IsSecure {
		return []byte{1}
	}
	return []byte{0}
}

func (m *GSStatusReply) Unmarshal(data []byte) error {
	if len(data) < 1 {
		return fmt.Errorf("%w: GSStatusReply is empty", errShortLegacyBody)
	}
	m.IsSecure = data[0] != 0
	return nil
}
