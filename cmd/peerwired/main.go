package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/peerwire/internal/admin"
	"github.com/danmuck/peerwire/internal/logging"
	"github.com/danmuck/peerwire/internal/observability"
	"github.com/danmuck/peerwire/internal/peer"
	"github.com/danmuck/peerwire/internal/protocol"
	"github.com/danmuck/peerwire/internal/server"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "peerwired: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to peerwired TOML config")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg := defaultDaemonConfig()
	if *configPath != "" {
		loaded, err := loadDaemonConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	observability.InitLogger(cfg.Name)

	srv := server.New(cfg.Server)
	srv.Handle(server.Events{
		OnPeerConnected: func(p *peer.Peer) {
			log.Info().Uint32("peer", p.ID()).Str("addr", p.Addr()).Msg("peer_connected")
		},
		OnPeerDisconnected: func(id uint32, reason string) {
			log.Info().Uint32("peer", id).Str("reason", reason).Msg("peer_disconnected")
		},
		OnMessage: func(id uint32, m protocol.Message) {
			log.Debug().Uint32("peer", id).Str("type", m.Type.String()).
				Int("payload", len(m.Payload)).Msg("message_received")
		},
	})
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()

	if cfg.AdminAddr != "" {
		surface := admin.New(cfg.Name, cfg.AdminAddr, srv, cfg.CorsOrigins)
		go func() {
			if err := surface.Serve(); err != nil {
				log.Error().Err(err).Msg("admin_surface_failed")
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			srv.Poll()
		case sig := <-stop:
			log.Info().Str("signal", sig.String()).Msg("shutting_down")
			return nil
		}
	}
}
