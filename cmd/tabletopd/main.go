package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/playtable/tabletopnet/internal/config"
	"github.com/playtable/tabletopnet/internal/engine"
	"github.com/playtable/tabletopnet/internal/messenger"
	"github.com/playtable/tabletopnet/internal/player"
	"github.com/playtable/tabletopnet/internal/services/identity"
	"github.com/playtable/tabletopnet/internal/services/lobby"
	"github.com/playtable/tabletopnet/internal/services/local"
	"github.com/playtable/tabletopnet/internal/services/relay"
	"github.com/playtable/tabletopnet/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var (
		hostDirect = flag.Bool("host", false, "host a direct session")
		broadcast  = flag.Bool("broadcast", false, "host a relayed session published to the lobby service")
		joinAddr   = flag.String("join", "", "join a direct session at this address")
		joinRelay  = flag.String("join-relay", "", "join via a relay join code")
		joinLobby  = flag.String("join-lobby", "", "join via a lobby code")
		runLocal   = flag.String("local-services", "", "serve the dev relay/lobby/identity stack on this address")
	)
	flag.Parse()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if *runLocal != "" {
		stack := local.NewStack(logger.Named("local"))
		logger.Info("dev services listening", zap.String("addr", *runLocal))
		if err := http.ListenAndServe(*runLocal, stack.Routes()); err != nil {
			logger.Fatal("dev services failed", zap.Error(err))
		}
		return
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	catalog := player.NewMapCatalog(httpClient, engine.GameInfo{
		ID:              cfg.GameID,
		SharePreference: engine.ShareAsk,
	})

	s := session.New(session.Deps{
		Log:               logger,
		Messenger:         messenger.Console{Log: logger.Named("messenger")},
		Identity:          identity.NewHTTPClient(httpClient, cfg.AuthBaseURL),
		Relay:             relay.NewHTTPClient(httpClient, cfg.RelayBaseURL),
		Lobby:             lobby.NewHTTPClient(httpClient, cfg.LobbyBaseURL),
		Catalog:           catalog,
		PlayerName:        cfg.PlayerName,
		HeartbeatInterval: cfg.HeartbeatInterval,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *hostDirect:
		if err := s.StartHost(cfg.ListenAddr); err != nil {
			os.Exit(1)
		}
		logger.Info("hosting", zap.String("room", s.RoomID()))
	case *broadcast:
		s.StartBroadcastHost(ctx)
	case *joinAddr != "":
		if err := s.StartJoin(ctx, *joinAddr, cfg.DirectPort); err != nil {
			os.Exit(1)
		}
	case *joinRelay != "":
		if err := s.StartJoinRelay(ctx, *joinRelay); err != nil {
			os.Exit(1)
		}
	case *joinLobby != "":
		if err := s.StartJoinLobby(ctx, *joinLobby); err != nil {
			os.Exit(1)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	<-ctx.Done()
	s.Stop()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	return zcfg.Build()
}
