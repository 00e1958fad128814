package client

import (
	"github.com/tuokri/SteamKit/internal/callback"
	"github.com/tuokri/SteamKit/internal/serverlist"
	"github.com/tuokri/SteamKit/internal/steamid"
	"github.com/tuokri/SteamKit/internal/steammsg"
)

const (
	NameConnected        callback.Name = "client.connected"
	NameDisconnected     callback.Name = "client.disconnected"
	NameLoggedOn         callback.Name = "client.logged_on"
	NameLoggedOff        callback.Name = "client.logged_off"
	NameServerList       callback.Name = "client.server_list"
	NameServersAvailable callback.Name = "client.servers_available"
)

type ConnectedCallback struct {
	callback.Base
	Server serverlist.ServerRecord `json:"server"`
}

func (*ConnectedCallback) Name() callback.Name { return NameConnected }

type DisconnectedCallback struct {
	callback.Base
	UserInitiated bool   `json:"user_initiated"`
	Error         string `json:"error,omitempty"`
}

func (*DisconnectedCallback) Name() callback.Name { return NameDisconnected }

// LoggedOnCallback reports the outcome of a logon attempt. It is also posted
// with EResultNoConnection when a logon is attempted while disconnected.
type LoggedOnCallback struct {
	callback.Base
	Result           steammsg.EResult `json:"result"`
	SteamID          steamid.ID       `json:"steam_id"`
	CellID           uint32           `json:"cell_id"`
	ServerTime       uint32           `json:"server_time"`
	HeartbeatSeconds int32            `json:"heartbeat_seconds"`
}

func (*LoggedOnCallback) Name() callback.Name { return NameLoggedOn }

type LoggedOffCallback struct {
	callback.Base
	Result steammsg.EResult `json:"result"`
}

func (*LoggedOffCallback) Name() callback.Name { return NameLoggedOff }

type ServerListCallback struct {
	callback.Base
	Servers []serverlist.ServerRecord `json:"servers"`
}

func (*ServerListCallback) Name() callback.Name { return NameServerList }

type ServersAvailableCallback struct {
	callback.Base
	Servers                   []steammsg.AvailableServer `json:"servers"`
	ServerTypeForAuthServices uint32                     `json:"server_type_for_auth_services"`
}

func (*ServersAvailableCallback) Name() callback.Name { return NameServersAvailable }
