package steammsg

import "github.com/tuokri/SteamKit/internal/pbwire"

// IPAddress is CMsgIPAddress. Only the v4 arm is used by this client.
type IPAddress struct {
	V4 uint32
	V6 []byte
}

func (a *IPAddress) Marshal() []byte {
	var b pbwire.Builder
	b.Fixed32(1, a.V4).RawBytes(2, a.V6)
	return b.Bytes()
}

func (a *IPAddress) Unmarshal(data []byte) error {
	*a = IPAddress{}
	return pbwire.Range(data, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			a.V4 = f.Fixed32
		case 2:
			a.V6 = f.Clone()
		}
		return nil
	})
}

// ClientLogon is CMsgClientLogon as sent by a game server.
type ClientLogon struct {
	ProtocolVersion     uint32
	ClientOSType        uint32
	ObfuscatedPrivateIP *IPAddress
	MachineID           []byte
	GameServerToken     string
	GameServerAppID     int32
}

func (m *ClientLogon) Marshal() []byte {
	var b pbwire.Builder
	b.Uint32(1, m.ProtocolVersion).Uint32(7, m.ClientOSType)
	if m.ObfuscatedPrivateIP != nil {
		b.Message(11, m.ObfuscatedPrivateIP.Marshal())
	}
	b.RawBytes(30, m.MachineID).
		String(52, m.GameServerToken).
		Int32(82, m.GameServerAppID)
	return b.Bytes()
}

func (m *ClientLogon) Unmarshal(data []byte) error {
	*m = ClientLogon{}
	return pbwire.Range(data, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.ProtocolVersion = f.Uint32()
		case 7:
			m.ClientOSType = f.Uint32()
		case 11:
			m.ObfuscatedPrivateIP = &IPAddress{}
			return m.ObfuscatedPrivateIP.Unmarshal(f.Bytes)
		case 30:
			m.MachineID = f.Clone()
		case 52:
			m.GameServerToken = f.String()
		case 82:
			m.GameServerAppID = f.Int32()
		}
		return nil
	})
}

// ClientLogonResponse is CMsgClientLogonResponse.
type ClientLogonResponse struct {
	EResult                   EResult
	OutOfGameHeartbeatSeconds int32
	InGameHeartbeatSeconds    int32
	ServerTime                uint32
	CellID                    uint32
}

func (m *ClientLogonResponse) Marshal() []byte {
	var b pbwire.Builder
	b.Int32(1, int32(m.EResult)).
		Int32(2, m.OutOfGameHeartbeatSeconds).
		Int32(3, m.InGameHeartbeatSeconds).
		Fixed32(5, m.ServerTime).
		Uint32(7, m.CellID)
	return b.Bytes()
}

func (m *ClientLogonResponse) Unmarshal(data []byte) error {
	*m = ClientLogonResponse{EResult: EResultFail}
	return pbwire.Range(data, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.EResult = EResult(f.Int32())
		case 2:
			m.OutOfGameHeartbeatSeconds = f.Int32()
		case 3:
			m.InGameHeartbeatSeconds = f.Int32()
		case 5:
			m.ServerTime = f.Fixed32
		case 7:
			m.CellID = f.Uint32()
		}
		return nil
	})
}

// ClientLoggedOff is CMsgClientLoggedOff.
type ClientLoggedOff struct {
	EResult EResult
}

func (m *ClientLoggedOff) Marshal() []byte {
	var b pbwire.Builder
	b.Int32(1, int32(m.EResult))
	return b.Bytes()
}

func (m *ClientLoggedOff) Unmarshal(data []byte) error {
	*m = ClientLoggedOff{EResult: EResultFail}
	return pbwire.Range(data, func(f pbwire.Field) error {
		if f.Num == 1 {
			m.EResult = EResult(f.Int32())
		}
		return nil
	})
}

// ClientHeartBeat is CMsgClientHeartBeat.
type ClientHeartBeat struct {
	SendReply bool
}

func (m *ClientHeartBeat) Marshal() []byte {
	var b pbwire.Builder
	b.Bool(1, m.SendReply)
	return b.Bytes()
}

func (m *ClientHeartBeat) Unmarshal(data []byte) error {
	*m = ClientHeartBeat{}
	return pbwire.Range(data, func(f pbwire.Field) error {
		if f.Num == 1 {
			m.SendReply = f.Bool()
		}
		return nil
	})
}

// ClientLogOff is CMsgClientLogOff; it has no fields.
type ClientLogOff struct{}

func (m *ClientLogOff) Marshal() []byte { return nil }

func (m *ClientLogOff) Unmarshal(data []byte) error {
	return pbwire.Range(data, func(pbwire.Field) error { return nil })
}
