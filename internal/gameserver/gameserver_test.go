package gameserver

import (
	"bytes"
	"errors"
	"net"
	"testing"

	"github.com/tuokri/SteamKit/internal/callback"
	"github.com/tuokri/SteamKit/internal/client"
	"github.com/tuokri/SteamKit/internal/identity"
	"github.com/tuokri/SteamKit/internal/protocol"
	"github.com/tuokri/SteamKit/internal/steamid"
	"github.com/tuokri/SteamKit/internal/steammsg"
)

type fakeSender struct {
	connected bool
	ip        net.IP
	sent      []*protocol.Envelope
}

func (f *fakeSender) Send(env *protocol.Envelope) error {
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeSender) IsConnected() bool { return f.connected }
func (f *fakeSender) LocalIP() net.IP   { return f.ip }

type sinkSlice []callback.Callback

func (s *sinkSlice) Post(cb callback.Callback) { *s = append(*s, cb) }

var testIdent = identity.Static{OS: identity.OSWindows10, ID: []byte{0x00, 'M', 'I', 0x08, 0x08}}

func newModule(connected bool) (*Module, *fakeSender, *sinkSlice) {
	m := New(steamid.UniversePublic, testIdent)
	s := &fakeSender{connected: connected, ip: net.IPv4(192, 168, 0, 10)}
	sink := &sinkSlice{}
	m.Setup(s, sink)
	return m, s, sink
}

func TestBuildStatus_Address(t *testing.T) {
	tests := []struct {
		name    string
		addr    net.IP
		want    uint32
		wantErr error
	}{
		{name: "nil address omitted", addr: nil, want: 0},
		{name: "ipv4", addr: net.IPv4(192, 168, 1, 2), want: 0xC0A80102},
		{name: "ipv4 in 16-byte form", addr: net.ParseIP("10.0.0.1"), want: 0x0A000001},
		{name: "ipv6 rejected", addr: net.ParseIP("2001:db8::1"), wantErr: ErrNotIPv4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := BuildStatus(StatusDetails{AppID: 440, Address: tt.addr, Port: 27015, GameDirectory: "tf", Version: "1.0"})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || env != nil {
					t.Fatalf("BuildStatus: env=%v err=%v, want %v", env, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildStatus: %v", err)
			}
			if env.Type != protocol.EMsgGSServerType || env.IsProto {
				t.Fatalf("envelope kind mismatch: %s proto=%v", env.Type, env.IsProto)
			}
			var body steammsg.GSServerType
			if err := env.Decode(&body); err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if body.GameIPAddress != tt.want {
				t.Errorf("GameIPAddress mismatch: got %#x, want %#x", body.GameIPAddress, tt.want)
			}
			if body.AppIDServed != 440 || body.GamePort != 27015 || body.GameDirectory != "tf" || body.Version != "1.0" {
				t.Errorf("body mismatch: %+v", body)
			}
		})
	}
}

func TestSendStatus_NotIPv4NeverSent(t *testing.T) {
	m, s, _ := newModule(true)
	err := m.SendStatus(StatusDetails{AppID: 440, Address: net.ParseIP("::1")})
	if !errors.Is(err, ErrNotIPv4) {
		t.Fatalf("err = %v, want ErrNotIPv4", err)
	}
	if len(s.sent) != 0 {
		t.Fatalf("sent %d envelopes, want 0", len(s.sent))
	}
}

func TestBuildLogOn(t *testing.T) {
	local := net.IPv4(192, 168, 0, 10)
	env, err := BuildLogOn(LogOnDetails{Token: "secret", AppID: 440}, testIdent, local, steamid.UniversePublic)
	if err != nil {
		t.Fatalf("BuildLogOn: %v", err)
	}
	if env.Type != protocol.EMsgClientLogonGameServer || !env.IsProto {
		t.Fatalf("envelope kind mismatch: %s proto=%v", env.Type, env.IsProto)
	}
	id := steamid.ID(env.Header.SteamID)
	if id.AccountType() != steamid.TypeGameServer || id.Universe() != steamid.UniversePublic || id.AccountID() != 0 {
		t.Errorf("header steam id mismatch: %v", id)
	}

	var body steammsg.ClientLogon
	if err := env.Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.ProtocolVersion != steammsg.CurrentProtocol {
		t.Errorf("ProtocolVersion mismatch: got %d, want %d", body.ProtocolVersion, steammsg.CurrentProtocol)
	}
	if body.ClientOSType != 16 {
		t.Errorf("ClientOSType mismatch: got %d, want 16", body.ClientOSType)
	}
	if body.GameServerToken != "secret" || body.GameServerAppID != 440 {
		t.Errorf("credentials mismatch: %q %d", body.GameServerToken, body.GameServerAppID)
	}
	if !bytes.Equal(body.MachineID, testIdent.ID) {
		t.Errorf("MachineID mismatch: %x", body.MachineID)
	}
	if body.ObfuscatedPrivateIP == nil || body.ObfuscatedPrivateIP.V4 != 0xC0A8000A^steammsg.PrivateIPObfuscationMask {
		t.Errorf("ObfuscatedPrivateIP mismatch: %+v", body.ObfuscatedPrivateIP)
	}
}

func TestBuildLogOn_Validation(t *testing.T) {
	if _, err := BuildLogOn(LogOnDetails{AppID: 440}, testIdent, nil, steamid.UniversePublic); !errors.Is(err, ErrNoToken) {
		t.Errorf("missing token: err = %v", err)
	}
	if _, err := BuildLogOn(LogOnDetails{Token: "t"}, testIdent, nil, steamid.UniversePublic); !errors.Is(err, ErrNoAppID) {
		t.Errorf("missing app id: err = %v", err)
	}
}

func TestBuildAnonLogOn(t *testing.T) {
	env, err := BuildAnonLogOn(730, testIdent, net.ParseIP("fe80::1"), steamid.UniverseBeta)
	if err != nil {
		t.Fatalf("BuildAnonLogOn: %v", err)
	}
	id := steamid.ID(env.Header.SteamID)
	if id.AccountType() != steamid.TypeAnonGameServer || id.Universe() != steamid.UniverseBeta {
		t.Errorf("header steam id mismatch: %v", id)
	}
	var body steammsg.ClientLogon
	if err := env.Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.GameServerToken != "" || body.GameServerAppID != 730 {
		t.Errorf("body mismatch: %+v", body)
	}
	if body.ObfuscatedPrivateIP != nil {
		t.Errorf("non-IPv4 local address should be omitted, got %+v", body.ObfuscatedPrivateIP)
	}
}

func TestLogOn_Disconnected(t *testing.T) {
	m, s, sink := newModule(false)
	if err := m.LogOn(LogOnDetails{Token: "t", AppID: 440}); err != nil {
		t.Fatalf("LogOn: %v", err)
	}
	if len(s.sent) != 0 {
		t.Fatalf("sent %d envelopes while disconnected", len(s.sent))
	}
	if len(*sink) != 1 {
		t.Fatalf("posted %d callbacks, want 1", len(*sink))
	}
	cb, ok := (*sink)[0].(*client.LoggedOnCallback)
	if !ok || cb.Result != steammsg.EResultNoConnection {
		t.Fatalf("callback = %#v", (*sink)[0])
	}
}

func TestLogOnAnonymous_Sends(t *testing.T) {
	m, s, _ := newModule(true)
	if err := m.LogOnAnonymous(440); err != nil {
		t.Fatalf("LogOnAnonymous: %v", err)
	}
	if len(s.sent) != 1 || s.sent[0].Type != protocol.EMsgClientLogonGameServer {
		t.Fatalf("sent = %v", s.sent)
	}
}

func TestGetUserStats_JobID(t *testing.T) {
	m, s, _ := newModule(true)
	user := steamid.New(1234, 1, steamid.UniversePublic, steamid.TypeIndividual)
	job, err := m.GetUserStats(440, user)
	if err != nil {
		t.Fatalf("GetUserStats: %v", err)
	}
	if len(s.sent) != 1 || s.sent[0].Header.SourceJobID != job {
		t.Fatalf("sent = %+v, job %d", s.sent, job)
	}
	var body steammsg.ClientGetUserStats
	if err := s.sent[0].Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.GameID != 440 || body.SteamIDForUser != uint64(user) || body.SchemaLocalVersion != -1 {
		t.Errorf("body mismatch: %+v", body)
	}

	if _, err := m.GetUserStats(440, 0); !errors.Is(err, ErrNoAccount) {
		t.Errorf("zero steam id: err = %v", err)
	}
}

// routed wires the module into a client and routes envelopes through it.
func routed(t *testing.T, envs ...*protocol.Envelope) []callback.Callback {
	t.Helper()
	sink := &sinkSlice{}
	c, err := client.New(client.WithModules(New(steamid.UniversePublic, testIdent)), client.WithSink(sink))
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	for _, env := range envs {
		if err := c.Router().Route(env); err != nil {
			t.Fatalf("Route %s: %v", env.Type, err)
		}
	}
	return *sink
}

func TestHandlers(t *testing.T) {
	stats := protocol.NewProtoEnvelope(protocol.EMsgClientGetUserStatsResponse, &steammsg.ClientGetUserStatsResponse{
		GameID:  440,
		EResult: steammsg.EResultOK,
		Stats:   []steammsg.Stat{{ID: 1, Value: 10}},
	})
	stats.Header.TargetJobID = 7

	got := routed(t,
		protocol.NewLegacyEnvelope(protocol.EMsgGSStatusReply, &steammsg.GSStatusReply{IsSecure: true}),
		protocol.NewProtoEnvelope(protocol.EMsgClientTicketAuthComplete, &steammsg.ClientTicketAuthComplete{
			SteamID: 76561197960265729, GameID: 440, State: 1, TicketCRC: 99,
		}),
		stats,
	)
	if len(got) != 3 {
		t.Fatalf("posted %d callbacks, want 3", len(got))
	}
	if cb, ok := got[0].(*StatusReplyCallback); !ok || !cb.IsSecure {
		t.Errorf("status reply = %#v", got[0])
	}
	if cb, ok := got[1].(*TicketAuthCallback); !ok || cb.SteamID != 76561197960265729 || cb.TicketCRC != 99 {
		t.Errorf("ticket auth = %#v", got[1])
	}
	cb, ok := got[2].(*UserStatsCallback)
	if !ok || cb.JobID != 7 || cb.Result != steammsg.EResultOK || len(cb.Stats) != 1 || cb.Stats[0].Value != 10 {
		t.Errorf("user stats = %#v", got[2])
	}
}

func TestHandlers_InBatch(t *testing.T) {
	frame := protocol.Serialize(protocol.NewLegacyEnvelope(protocol.EMsgGSStatusReply, &steammsg.GSStatusReply{}))
	batch, err := protocol.NewBatchEnvelope([][]byte{frame, frame}, false)
	if err != nil {
		t.Fatalf("NewBatchEnvelope: %v", err)
	}
	got := routed(t, batch)
	if len(got) != 2 {
		t.Fatalf("posted %d callbacks, want 2", len(got))
	}
}
