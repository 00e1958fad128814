package gameserver

import (
	"github.com/tuokri/SteamKit/internal/callback"
	"github.com/tuokri/SteamKit/internal/steamid"
	"github.com/tuokri/SteamKit/internal/steammsg"
)

const (
	NameStatusReply callback.Name = "gameserver.status_reply"
	NameTicketAuth  callback.Name = "gameserver.ticket_auth"
	NameUserStats   callback.Name = "gameserver.user_stats"
)

type StatusReplyCallback struct {
	callback.Base
	IsSecure bool `json:"is_secure"`
}

func (*StatusReplyCallback) Name() callback.Name { return NameStatusReply }

// TicketAuthCallback reports the CM's verdict on a player's auth ticket.
type TicketAuthCallback struct {
	callback.Base
	SteamID             steamid.ID `json:"steam_id"`
	OwnerSteamID        steamid.ID `json:"owner_steam_id"`
	GameID              uint64     `json:"game_id"`
	State               uint32     `json:"state"`
	AuthSessionResponse uint32     `json:"auth_session_response"`
	TicketCRC           uint32     `json:"ticket_crc"`
	TicketSequence      uint32     `json:"ticket_sequence"`
}

func (*TicketAuthCallback) Name() callback.Name { return NameTicketAuth }

// UserStatsCallback answers GetUserStats. JobID matches the id it returned.
type UserStatsCallback struct {
	callback.Base
	Result            steammsg.EResult            `json:"result"`
	GameID            uint64                      `json:"game_id"`
	CRCStats          uint32                      `json:"crc_stats"`
	Schema            []byte                      `json:"schema,omitempty"`
	Stats             []steammsg.Stat             `json:"stats"`
	AchievementBlocks []steammsg.AchievementBlock `json:"achievement_blocks,omitempty"`
}

func (*UserStatsCallback) Name() callback.Name { return NameUserStats }
