// Command peek decodes a captured CM packet and prints the tree of messages
// it dispatches to, descending into batches.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/tuokri/SteamKit/internal/protocol"
	"github.com/tuokri/SteamKit/internal/steammsg"
)

func main() {
	var (
		file     = flag.String("file", "", "raw packet file (without transport framing)")
		hexIn    = flag.String("hex", "", "raw packet as hex")
		demo     = flag.Bool("demo", false, "decode a built-in nested batch")
		maxDepth = flag.Int("max-depth", protocol.DefaultMaxDepth, "batch nesting limit")
	)
	flag.Parse()

	var (
		data []byte
		err  error
	)
	switch {
	case *demo:
		data, err = demoPacket()
	case *file != "":
		data, err = os.ReadFile(*file)
	case *hexIn != "":
		data, err = hex.DecodeString(strings.TrimSpace(*hexIn))
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	p := &printer{}
	env, err := p.parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
		os.Exit(1)
	}
	if err := p.router(*maxDepth).Route(env); err != nil {
		os.Exit(1)
	}
}

// printer writes one line per envelope. Routing is synchronous, so depth
// tracks the batch currently being decoded.
type printer struct {
	depth int
}

func (p *printer) line(format string, args ...any) {
	fmt.Printf("%s%s\n", strings.Repeat("  ", p.depth), fmt.Sprintf(format, args...))
}

func (p *printer) parse(frame []byte) (*protocol.Envelope, error) {
	env, err := protocol.ParsePacket(frame)
	if err != nil {
		return nil, err
	}
	if env.Type != protocol.EMsgMulti {
		p.line("%s proto=%v target_job=%s bytes=%d", env.Type, env.IsProto, jobString(env.Header.TargetJobID), len(env.Payload))
	}
	return env, nil
}

func (p *printer) router(maxDepth int) *protocol.Router {
	batch := protocol.NewBatchDecoder(p.parse, protocol.WithBatchMetrics(false))
	table, err := protocol.NewDispatchTable(map[protocol.EMsg]protocol.Handler{
		protocol.EMsgMulti: func(d protocol.Dispatcher, env *protocol.Envelope) error {
			var m steammsg.Multi
			_ = env.Decode(&m)
			p.line("Multi depth=%d size_unzipped=%d body=%d", d.Depth(), m.SizeUnzipped, len(m.MessageBody))
			p.depth++
			defer func() { p.depth-- }()
			return batch.Handle(d, env)
		},
	})
	if err != nil {
		panic(err)
	}
	return protocol.NewRouter(table,
		protocol.WithMaxDepth(maxDepth),
		protocol.WithMetrics(false),
		protocol.WithLogger(zap.NewNop()),
		protocol.WithErrorHook(func(_ *protocol.Envelope, err error) {
			p.line("! %v", err)
		}),
	)
}

func jobString(id uint64) string {
	if id == steammsg.InvalidJobID {
		return "-"
	}
	return fmt.Sprint(id)
}

// demoPacket is a batch holding a logon response, a compressed inner batch
// and a truncated trailing frame.
func demoPacket() ([]byte, error) {
	logon := protocol.NewProtoEnvelope(protocol.EMsgClientLogOnResponse, &steammsg.ClientLogonResponse{EResult: steammsg.EResultOK})
	cmList := protocol.NewProtoEnvelope(protocol.EMsgClientCMList, &steammsg.ClientCMList{
		Addresses: []uint32{0x0A000001, 0x0A000002},
		Ports:     []uint32{27017, 27018},
	})
	status := protocol.NewLegacyEnvelope(protocol.EMsgGSStatusReply, &steammsg.GSStatusReply{IsSecure: true})

	inner, err := protocol.NewBatchEnvelope([][]byte{protocol.Serialize(cmList), protocol.Serialize(status)}, true)
	if err != nil {
		return nil, err
	}
	body := protocol.AppendFrame(nil, protocol.Serialize(logon))
	body = protocol.AppendFrame(body, protocol.Serialize(inner))
	// a length prefix promising more bytes than follow
	body = append(body, 0xFF, 0, 0, 0, 1, 2)

	outer := protocol.NewProtoEnvelope(protocol.EMsgMulti, &steammsg.Multi{MessageBody: body})
	return protocol.Serialize(outer), nil
}
