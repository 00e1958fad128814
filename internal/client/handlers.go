package client

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tuokri/SteamKit/internal/callback"
	"github.com/tuokri/SteamKit/internal/protocol"
	"github.com/tuokri/SteamKit/internal/serverlist"
	"github.com/tuokri/SteamKit/internal/steamid"
	"github.com/tuokri/SteamKit/internal/steammsg"
)

func (c *CMClient) handleLogOnResponse(_ protocol.Dispatcher, env *protocol.Envelope) error {
	var body steammsg.ClientLogonResponse
	if err := env.Decode(&body); err != nil {
		return err
	}
	cb := &LoggedOnCallback{
		Base:             callback.NewBase(env.Header.TargetJobID),
		Result:           body.EResult,
		CellID:           body.CellID,
		ServerTime:       body.ServerTime,
		HeartbeatSeconds: body.OutOfGameHeartbeatSeconds,
	}
	if cb.HeartbeatSeconds <= 0 {
		cb.HeartbeatSeconds = body.InGameHeartbeatSeconds
	}

	if body.EResult == steammsg.EResultOK {
		c.mu.Lock()
		c.steamID = steamid.ID(env.Header.SteamID)
		c.sessionID = env.Header.SessionID
		c.mu.Unlock()
		cb.SteamID = steamid.ID(env.Header.SteamID)
		c.startHeartbeat(time.Duration(cb.HeartbeatSeconds) * time.Second)
	} else if body.EResult == steammsg.EResultTryAnotherCM || body.EResult == steammsg.EResultServiceUnavailable {
		c.mu.Lock()
		rec := c.server
		c.mu.Unlock()
		c.servers.MarkBad(rec, badServerPenalty)
	}
	c.log.Info("logged_on", zap.Stringer("result", body.EResult), zap.Stringer("steam_id", cb.SteamID))
	c.Post(cb)
	return nil
}

func (c *CMClient) handleLoggedOff(_ protocol.Dispatcher, env *protocol.Envelope) error {
	var body steammsg.ClientLoggedOff
	if err := env.Decode(&body); err != nil {
		return err
	}
	c.mu.Lock()
	c.steamID = 0
	c.sessionID = 0
	c.stopHeartbeatLocked()
	c.mu.Unlock()

	c.log.Info("logged_off", zap.Stringer("result", body.EResult))
	c.Post(&LoggedOffCallback{Base: callback.NewBase(env.Header.TargetJobID), Result: body.EResult})
	return nil
}

func (c *CMClient) handleCMList(_ protocol.Dispatcher, env *protocol.Envelope) error {
	var body steammsg.ClientCMList
	if err := env.Decode(&body); err != nil {
		return err
	}
	recs := serverlist.FromCMList(&body)
	// the provider may do network I/O, which must stay off the read loop
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.servers.Replace(ctx, recs); err != nil {
			c.log.Warn("server_list_persist_failed", zap.Error(err))
		}
	}()
	c.Post(&ServerListCallback{Base: callback.NewBase(env.Header.TargetJobID), Servers: recs})
	return nil
}

func (c *CMClient) handleServersAvailable(_ protocol.Dispatcher, env *protocol.Envelope) error {
	var body steammsg.ClientServersAvailable
	if err := env.Decode(&body); err != nil {
		return err
	}
	c.Post(&ServersAvailableCallback{
		Base:                      callback.NewBase(env.Header.TargetJobID),
		Servers:                   body.Servers,
		ServerTypeForAuthServices: body.ServerTypeForAuthServices,
	})
	return nil
}
