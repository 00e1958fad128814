package gameserver

import (
	"errors"
	"net"

	"github.com/tuokri/SteamKit/internal/identity"
	"github.com/tuokri/SteamKit/internal/protocol"
	"github.com/tuokri/SteamKit/internal/steamid"
	"github.com/tuokri/SteamKit/internal/steammsg"
)

var (
	ErrNotIPv4   = errors.New("gameserver: address is not IPv4")
	ErrNoToken   = errors.New("gameserver: logon token is required")
	ErrNoAppID   = errors.New("gameserver: app id is required")
	ErrNoAccount = errors.New("gameserver: steam id is required")
)

// LogOnDetails are the credentials of a persistent game server account.
type LogOnDetails struct {
	Token string
	AppID uint32
}

// StatusDetails describe where the server listens and what it serves.
// A nil Address leaves the game address unset.
type StatusDetails struct {
	AppID         uint32
	ServerFlags   uint32
	GameDirectory string
	Address       net.IP
	Port          uint16
	QueryPort     uint16
	Version       string
}

// BuildLogOn builds the logon for a persistent game server account. The
// private address is sent obfuscated when localIP is IPv4.
func BuildLogOn(details LogOnDetails, ident identity.Provider, localIP net.IP, universe steamid.Universe) (*protocol.Envelope, error) {
	if details.Token == "" {
		return nil, ErrNoToken
	}
	if details.AppID == 0 {
		return nil, ErrNoAppID
	}
	body := logonBody(details.AppID, ident, localIP)
	body.GameServerToken = details.Token
	env := protocol.NewProtoEnvelope(protocol.EMsgClientLogonGameServer, body)
	env.Header.SteamID = uint64(steamid.New(0, 0, universe, steamid.TypeGameServer))
	return env, nil
}

// BuildAnonLogOn logs on without an account; the CM assigns an anonymous id.
func BuildAnonLogOn(appID uint32, ident identity.Provider, localIP net.IP, universe steamid.Universe) (*protocol.Envelope, error) {
	if appID == 0 {
		return nil, ErrNoAppID
	}
	env := protocol.NewProtoEnvelope(protocol.EMsgClientLogonGameServer, logonBody(appID, ident, localIP))
	env.Header.SteamID = uint64(steamid.New(0, 0, universe, steamid.TypeAnonGameServer))
	return env, nil
}

func logonBody(appID uint32, ident identity.Provider, localIP net.IP) *steammsg.ClientLogon {
	body := &steammsg.ClientLogon{
		ProtocolVersion: steammsg.CurrentProtocol,
		ClientOSType:    uint32(ident.OSType()),
		MachineID:       ident.MachineID(),
		GameServerAppID: int32(appID),
	}
	if v, ok := identity.ObfuscateIP(localIP); ok {
		body.ObfuscatedPrivateIP = &steammsg.IPAddress{V4: v}
	}
	return body
}

// BuildStatus fails with ErrNotIPv4 when Address is set but has no IPv4
// form.
func BuildStatus(details StatusDetails) (*protocol.Envelope, error) {
	body := &steammsg.GSServerType{
		AppIDServed:   details.AppID,
		Flags:         details.ServerFlags,
		GamePort:      details.Port,
		GameQueryPort: details.QueryPort,
		GameDirectory: details.GameDirectory,
		Version:       details.Version,
	}
	if details.Address != nil {
		v, ok := identity.IPv4(details.Address)
		if !ok {
			return nil, ErrNotIPv4
		}
		body.GameIPAddress = v
	}
	return protocol.NewLegacyEnvelope(protocol.EMsgGSServerType, body), nil
}

// BuildLogOff builds an empty ClientLogOff.
func BuildLogOff() *protocol.Envelope {
	return protocol.NewProtoEnvelope(protocol.EMsgClientLogOff, &steammsg.ClientLogOff{})
}

// BuildGetUserStats requests the stats of user for gameID.
func BuildGetUserStats(gameID uint64, user steamid.ID, crc uint32, schemaVersion int32) (*protocol.Envelope, error) {
	if user == 0 {
		return nil, ErrNoAccount
	}
	return protocol.NewProtoEnvelope(protocol.EMsgClientGetUserStats, &steammsg.ClientGetUserStats{
		GameID:             gameID,
		CRCStats:           crc,
		SchemaLocalVersion: schemaVersion,
		SteamIDForUser:     uint64(user),
	}), nil
}
