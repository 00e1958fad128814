// Package subscriber registers the built-in callback consumers used by the
// command-line tools.
package subscriber

import (
	"go.uber.org/zap"

	"github.com/tuokri/SteamKit/internal/callback"
	"github.com/tuokri/SteamKit/internal/client"
	"github.com/tuokri/SteamKit/internal/gameserver"
	"github.com/tuokri/SteamKit/internal/steammsg"
)

// RegisterAll subscribes every built-in logger to m.
func RegisterAll(m *callback.Manager, log *zap.Logger) {
	registerConnection(m, log)
	registerSession(m, log)
	registerServers(m, log)
	registerGameServer(m, log)
}

func registerConnection(m *callback.Manager, log *zap.Logger) {
	m.Subscribe(client.NameConnected, func(cb callback.Callback) {
		c := cb.(*client.ConnectedCallback)
		log.Info("cm_connected", zap.Stringer("server", c.Server))
	})
	m.Subscribe(client.NameDisconnected, func(cb callback.Callback) {
		d := cb.(*client.DisconnectedCallback)
		log.Info("cm_disconnected", zap.Bool("user_initiated", d.UserInitiated), zap.String("error", d.Error))
	})
}

func registerSession(m *callback.Manager, log *zap.Logger) {
	m.Subscribe(client.NameLoggedOn, func(cb callback.Callback) {
		l := cb.(*client.LoggedOnCallback)
		if l.Result != steammsg.EResultOK {
			log.Warn("logon_failed", zap.Stringer("result", l.Result))
			return
		}
		log.Info("logon_ok", zap.Stringer("steam_id", l.SteamID), zap.Uint32("cell_id", l.CellID))
	})
	m.Subscribe(client.NameLoggedOff, func(cb callback.Callback) {
		log.Info("logged_off", zap.Stringer("result", cb.(*client.LoggedOffCallback).Result))
	})
}

func registerServers(m *callback.Manager, log *zap.Logger) {
	m.Subscribe(client.NameServerList, func(cb callback.Callback) {
		log.Info("server_list", zap.Int("servers", len(cb.(*client.ServerListCallback).Servers)))
	})
	m.Subscribe(client.NameServersAvailable, func(cb callback.Callback) {
		log.Debug("servers_available", zap.Int("servers", len(cb.(*client.ServersAvailableCallback).Servers)))
	})
}

func registerGameServer(m *callback.Manager, log *zap.Logger) {
	m.Subscribe(gameserver.NameStatusReply, func(cb callback.Callback) {
		log.Info("status_reply", zap.Bool("secure", cb.(*gameserver.StatusReplyCallback).IsSecure))
	})
	m.Subscribe(gameserver.NameTicketAuth, func(cb callback.Callback) {
		t := cb.(*gameserver.TicketAuthCallback)
		log.Info("ticket_auth",
			zap.Stringer("steam_id", t.SteamID),
			zap.Uint32("state", t.State),
			zap.Uint32("response", t.AuthSessionResponse),
		)
	})
	m.Subscribe(gameserver.NameUserStats, func(cb callback.Callback) {
		s := cb.(*gameserver.UserStatsCallback)
		log.Info("user_stats", zap.Uint64("job", s.JobID), zap.Stringer("result", s.Result), zap.Int("stats", len(s.Stats)))
	})
}
