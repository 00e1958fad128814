// Command gameserver connects to a CM as a dedicated game server, logs on
// and reports its status. With -tail it instead follows the callback stream
// another instance publishes to Redis.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tuokri/SteamKit/internal/bus/redisstream"
	"github.com/tuokri/SteamKit/internal/callback"
	"github.com/tuokri/SteamKit/internal/client"
	"github.com/tuokri/SteamKit/internal/command"
	"github.com/tuokri/SteamKit/internal/config"
	"github.com/tuokri/SteamKit/internal/gameserver"
	"github.com/tuokri/SteamKit/internal/observe"
	"github.com/tuokri/SteamKit/internal/serverlist"
	"github.com/tuokri/SteamKit/internal/steamid"
	"github.com/tuokri/SteamKit/internal/steammsg"
	"github.com/tuokri/SteamKit/internal/subscriber"
	"github.com/tuokri/SteamKit/pkg/logger"
)

const reconnectDelay = 5 * time.Second

func main() {
	var (
		anon    = flag.Bool("anon", false, "log on anonymously even when a token is configured")
		tail    = flag.Bool("tail", false, "print callbacks from the Redis stream and exit on interrupt")
		gameDir = flag.String("dir", "", "game directory reported in the status")
		version = flag.String("version", "1.0.0.0", "server version reported in the status")
		gameIP  = flag.String("ip", "", "public IPv4 address reported in the status")
		port    = flag.Uint("port", 27015, "game port")
		qport   = flag.Uint("query-port", 27015, "query port")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.Named("gameserver")
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *tail {
		if err := tailStream(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal("tail_failed", zap.Error(err))
		}
		return
	}

	status := gameserver.StatusDetails{
		AppID:         cfg.GameServerApp,
		GameDirectory: *gameDir,
		Version:       *version,
		Port:          uint16(*port),
		QueryPort:     uint16(*qport),
	}
	if *gameIP != "" {
		if status.Address = net.ParseIP(*gameIP); status.Address == nil {
			log.Fatal("bad_ip", zap.String("ip", *gameIP))
		}
	}

	if err := run(ctx, stop, cfg, log, status, *anon || cfg.GameServerAuth == ""); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("exit", zap.Error(err))
	}
}

func run(ctx context.Context, quit func(), cfg *config.Config, log *zap.Logger, status gameserver.StatusDetails, anonymous bool) error {
	servers, closeList, err := serverList(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeList()

	g, ctx := errgroup.WithContext(ctx)

	opts := append(client.FromConfig(cfg), client.WithServerList(servers))
	if cfg.RedisAddr != "" {
		bus := redisstream.New(cfg.RedisAddr, 0, cfg.RedisStream, "steamkit")
		defer func() { _ = bus.Close() }()
		g.Go(func() error { return bus.Run(ctx) })
		opts = append(opts, client.WithSink(bus))
	}
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return observe.StartHTTP(ctx, cfg.MetricsAddr) })
	}

	gs := gameserver.New(steamid.Universe(cfg.Universe), nil)
	c, err := client.New(append(opts, client.WithModules(gs))...)
	if err != nil {
		return err
	}

	cbs := c.Callbacks()
	subscriber.RegisterAll(cbs, log)
	cbs.Subscribe(client.NameConnected, func(callback.Callback) {
		var err error
		if anonymous {
			err = gs.LogOnAnonymous(cfg.GameServerApp)
		} else {
			err = gs.LogOn(gameserver.LogOnDetails{Token: cfg.GameServerAuth, AppID: cfg.GameServerApp})
		}
		if err != nil {
			log.Error("log_on_failed", zap.Error(err))
		}
	})
	cbs.Subscribe(client.NameLoggedOn, func(cb callback.Callback) {
		if cb.(*client.LoggedOnCallback).Result != steammsg.EResultOK {
			return
		}
		if err := gs.SendStatus(status); err != nil {
			log.Error("send_status_failed", zap.Error(err))
		}
	})
	reconnect := make(chan struct{}, 1)
	cbs.Subscribe(client.NameDisconnected, func(cb callback.Callback) {
		if !cb.(*client.DisconnectedCallback).UserInitiated {
			select {
			case reconnect <- struct{}{}:
			default:
			}
		}
	})
	g.Go(func() error { return cbs.Run(ctx) })
	go console(&command.Context{GameServer: gs, Servers: servers, Status: status, Out: os.Stdout, Quit: quit}, log)

	g.Go(func() error {
		proto := serverlist.Protocol(cfg.Protocol)
		for {
			if err := c.ConnectAny(ctx, proto); err != nil {
				log.Warn("connect_failed", zap.Error(err))
				select {
				case reconnect <- struct{}{}:
				default:
				}
			}
			select {
			case <-ctx.Done():
				_ = gs.LogOff()
				c.Disconnect()
				return ctx.Err()
			case <-reconnect:
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reconnectDelay):
			}
		}
	})
	return g.Wait()
}

// console executes slash commands read from stdin.
func console(ctx *command.Context, log *zap.Logger) {
	reg := command.NewRegistry()
	if err := command.RegisterBuiltins(reg); err != nil {
		log.Error("console_disabled", zap.Error(err))
		return
	}
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		handled, err := reg.Execute(sc.Text(), ctx)
		if err != nil {
			ctx.Println(err)
		} else if !handled {
			ctx.Println("commands start with '/', try /help")
		}
	}
}

// serverList prefers etcd, then a fixed address from the environment.
func serverList(ctx context.Context, cfg *config.Config) (*serverlist.List, func(), error) {
	if len(cfg.EtcdEndpoints) > 0 {
		p, err := serverlist.NewEtcdProvider(cfg.EtcdEndpoints, serverlist.DefaultEtcdPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("etcd: %w", err)
		}
		l := serverlist.NewList(p)
		if err := l.Load(ctx); err != nil {
			_ = p.Close()
			return nil, nil, err
		}
		return l, func() { _ = p.Close() }, nil
	}

	l := serverlist.NewList(&serverlist.MemoryProvider{})
	if cfg.CMAddr == "" {
		return nil, nil, errors.New("set STEAMKIT_CM_ADDR or STEAMKIT_ETCD_ENDPOINTS")
	}
	rec := serverlist.ServerRecord{Addr: cfg.CMAddr, Protocol: serverlist.Protocol(cfg.Protocol)}
	if err := l.Replace(ctx, []serverlist.ServerRecord{rec}); err != nil {
		return nil, nil, err
	}
	return l, func() {}, nil
}

func tailStream(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.RedisAddr == "" {
		return errors.New("-tail needs STEAMKIT_REDIS_ADDR")
	}
	bus := redisstream.New(cfg.RedisAddr, 0, cfg.RedisStream, "steamkit-tail")
	defer func() { _ = bus.Close() }()
	if err := bus.EnsureGroup(ctx); err != nil {
		return err
	}
	host, _ := os.Hostname()
	log.Info("tailing", zap.String("stream", cfg.RedisStream))
	return bus.Consume(ctx, fmt.Sprintf("%s-%d", host, os.Getpid()), func(_ context.Context, m *redisstream.Message) error {
		fmt.Printf("%s %s %s\n", m.When.Format(time.RFC3339), m.Name, m.Data)
		return nil
	})
}
