// Package gameserver is the client module for dedicated game servers: logon
// with a token or anonymously, status reports, ticket validation results and
// user stats lookups.
package gameserver

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tuokri/SteamKit/internal/callback"
	"github.com/tuokri/SteamKit/internal/client"
	"github.com/tuokri/SteamKit/internal/identity"
	"github.com/tuokri/SteamKit/internal/protocol"
	"github.com/tuokri/SteamKit/internal/steamid"
	"github.com/tuokri/SteamKit/internal/steammsg"
	"github.com/tuokri/SteamKit/pkg/logger"
)

// Module implements client.Module.
type Module struct {
	universe steamid.Universe
	ident    identity.Provider
	log      *zap.Logger

	sender protocol.Sender
	sink   callback.Sink
	jobs   atomic.Uint64
}

var _ client.Module = (*Module)(nil)

// New returns a module for universe. A nil ident reads the host.
func New(universe steamid.Universe, ident identity.Provider) *Module {
	if ident == nil {
		ident = identity.NewHost()
	}
	return &Module{
		universe: universe,
		ident:    ident,
		log:      logger.Named("gameserver"),
	}
}

// Setup binds the module to the client that sends for it and receives its
// callbacks.
func (m *Module) Setup(s protocol.Sender, sink callback.Sink) {
	m.sender = s
	m.sink = sink
}

// Handlers covers status replies, ticket auth results and user stats.
func (m *Module) Handlers() map[protocol.EMsg]protocol.Handler {
	return map[protocol.EMsg]protocol.Handler{
		protocol.EMsgGSStatusReply:              m.handleStatusReply,
		protocol.EMsgClientTicketAuthComplete:   m.handleTicketAuth,
		protocol.EMsgClientGetUserStatsResponse: m.handleUserStats,
	}
}

// LogOn logs on with a persistent account. When disconnected, a
// LoggedOnCallback with EResultNoConnection is posted instead.
func (m *Module) LogOn(details LogOnDetails) error {
	if !m.sender.IsConnected() {
		m.postNoConnection()
		return nil
	}
	env, err := BuildLogOn(details, m.ident, m.sender.LocalIP(), m.universe)
	if err != nil {
		return err
	}
	m.log.Info("log_on", zap.Uint32("app_id", details.AppID))
	return m.send(env)
}

func (m *Module) LogOnAnonymous(appID uint32) error {
	if !m.sender.IsConnected() {
		m.postNoConnection()
		return nil
	}
	env, err := BuildAnonLogOn(appID, m.ident, m.sender.LocalIP(), m.universe)
	if err != nil {
		return err
	}
	m.log.Info("log_on_anonymous", zap.Uint32("app_id", appID))
	return m.send(env)
}

func (m *Module) LogOff() error {
	return m.send(BuildLogOff())
}

// SendStatus reports where the server listens. Invalid details are rejected
// before anything is sent.
func (m *Module) SendStatus(details StatusDetails) error {
	env, err := BuildStatus(details)
	if err != nil {
		return err
	}
	return m.send(env)
}

// GetUserStats requests stats for user and returns the job id that the
// resulting UserStatsCallback carries.
func (m *Module) GetUserStats(gameID uint64, user steamid.ID) (uint64, error) {
	env, err := BuildGetUserStats(gameID, user, 0, -1)
	if err != nil {
		return 0, err
	}
	job := m.jobs.Add(1)
	env.Header.SourceJobID = job
	if err := m.send(env); err != nil {
		return 0, err
	}
	return job, nil
}

func (m *Module) send(env *protocol.Envelope) error {
	if err := m.sender.Send(env); err != nil {
		return fmt.Errorf("gameserver: %s: %w", env.Type, err)
	}
	return nil
}

func (m *Module) postNoConnection() {
	m.sink.Post(&client.LoggedOnCallback{
		Base:   callback.NewBase(steammsg.InvalidJobID),
		Result: steammsg.EResultNoConnection,
	})
}

func (m *Module) handleStatusReply(_ protocol.Dispatcher, env *protocol.Envelope) error {
	var body steammsg.GSStatusReply
	if err := env.Decode(&body); err != nil {
		return err
	}
	m.sink.Post(&StatusReplyCallback{Base: callback.NewBase(env.Header.TargetJobID), IsSecure: body.IsSecure})
	return nil
}

func (m *Module) handleTicketAuth(_ protocol.Dispatcher, env *protocol.Envelope) error {
	var body steammsg.ClientTicketAuthComplete
	if err := env.Decode(&body); err != nil {
		return err
	}
	m.sink.Post(&TicketAuthCallback{
		Base:                callback.NewBase(env.Header.TargetJobID),
		SteamID:             steamid.ID(body.SteamID),
		OwnerSteamID:        steamid.ID(body.OwnerSteamID),
		GameID:              body.GameID,
		State:               body.State,
		AuthSessionResponse: body.AuthSessionResponse,
		TicketCRC:           body.TicketCRC,
		TicketSequence:      body.TicketSequence,
	})
	return nil
}

func (m *Module) handleUserStats(_ protocol.Dispatcher, env *protocol.Envelope) error {
	var body steammsg.ClientGetUserStatsResponse
	if err := env.Decode(&body); err != nil {
		return err
	}
	m.sink.Post(&UserStatsCallback{
		Base:              callback.NewBase(env.Header.TargetJobID),
		Result:            body.EResult,
		GameID:            body.GameID,
		CRCStats:          body.CRCStats,
		Schema:            body.Schema,
		Stats:             body.Stats,
		AchievementBlocks: body.AchievementBlocks,
	})
	return nil
}
