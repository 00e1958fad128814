package steammsg

import (
	"github.com/tuokri/SteamKit/internal/pbwire"
	"google.golang.org/protobuf/encoding/protowire"
)

// ClientCMList is CMsgClientCMList, pushed by the CM after logon.
type ClientCMList struct {
	Addresses          []uint32
	Ports              []uint32
	WebSocketAddresses []string
}

func (m *ClientCMList) Marshal() []byte {
	// repeated scalars are written packed
	var b pbwire.Builder
	if len(m.Addresses) > 0 {
		b.Message(1, packVarints(m.Addresses))
	}
	if len(m.Ports) > 0 {
		b.Message(2, packVarints(m.Ports))
	}
	for _, s := range m.WebSocketAddresses {
		b.Message(3, []byte(s))
	}
	return b.Bytes()
}

func (m *ClientCMList) Unmarshal(data []byte) error {
	*m = ClientCMList{}
	return pbwire.Range(data, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			v, err := f.Uint32s()
			if err != nil {
				return err
			}
			m.Addresses = append(m.Addresses, v...)
		case 2:
			v, err := f.Uint32s()
			if err != nil {
				return err
			}
			m.Ports = append(m.Ports, v...)
		case 3:
			m.WebSocketAddresses = append(m.WebSocketAddresses, f.String())
		}
		return nil
	})
}

func packVarints(vs []uint32) []byte {
	var out []byte
	for _, v := range vs {
		out = protowire.AppendVarint(out, uint64(v))
	}
	return out
}

// AvailableServer is one entry of ClientServersAvailable.
type AvailableServer struct {
	Server  uint32
	Changed bool
}

// ClientServersAvailable is CMsgClientServersAvailable.
type ClientServersAvailable struct {
	Servers                   []AvailableServer
	ServerTypeForAuthServices uint32
}

func (m *ClientServersAvailable) Marshal() []byte {
	var b pbwire.Builder
	for _, s := range m.Servers {
		var inner pbwire.Builder
		inner.Uint32(1, s.Server).Bool(2, s.Changed)
		b.Message(1, inner.Bytes())
	}
	b.Uint32(2, m.ServerTypeForAuthServices)
	return b.Bytes()
}

func (m *ClientServersAvailable) Unmarshal(data []byte) error {
	*m = ClientServersAvailable{}
	return pbwire.Range(data, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			var s AvailableServer
			err := pbwire.Range(f.Bytes, func(g pbwire.Field) error {
				switch g.Num {
				case 1:
					s.Server = g.Uint32()
				case 2:
					s.Changed = g.Bool()
				}
				return nil
			})
			if err != nil {
				return err
			}
			m.Servers = append(m.Servers, s)
		case 2:
			m.ServerTypeForAuthServices = f.Uint32()
		}
		return nil
	})
}
