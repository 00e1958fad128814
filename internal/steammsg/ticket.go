package steammsg

import "github.com/tuokri/SteamKit/internal/pbwire"

// ClientTicketAuthComplete is CMsgClientTicketAuthComplete. The CM sends it
// to a game server once a player's auth ticket has been validated or
// rejected.
type ClientTicketAuthComplete struct {
	SteamID             uint64
	GameID              uint64
	State               uint32
	AuthSessionResponse uint32
	TicketCRC           uint32
	TicketSequence      uint32
	OwnerSteamID        uint64
}

func (m *ClientTicketAuthComplete) Marshal() []byte {
	var b pbwire.Builder
	b.Fixed64(1, m.SteamID).
		Fixed64(2, m.GameID).
		Uint32(3, m.State).
		Uint32(4, m.AuthSessionResponse).
		Uint32(6, m.TicketCRC).
		Uint32(7, m.TicketSequence).
		Fixed64(8, m.OwnerSteamID)
	return b.Bytes()
}

func (m *ClientTicketAuthComplete) Unmarshal(data []byte) error {
	*m = ClientTicketAuthComplete{}
	return pbwire.Range(data, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.SteamID = f.Fixed64
		case 2:
			m.GameID = f.Fixed64
		case 3:
			m.State = f.Uint32()
		case 4:
			m.AuthSessionResponse = f.Uint32()
		case 6:
			m.TicketCRC = f.Uint32()
		case 7:
			m.TicketSequence = f.Uint32()
		case 8:
			m.OwnerSteamID = f.Fixed64
		}
		return nil
	})
}
