package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danmuck/peerwire/internal/client"
	"github.com/danmuck/peerwire/internal/config"
	"github.com/danmuck/peerwire/internal/logging"
	"github.com/danmuck/peerwire/internal/observability"
	"github.com/danmuck/peerwire/internal/protocol"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "peerwire-send: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to client TOML config")
	host := flag.String("host", "127.0.0.1", "server host")
	port := flag.Uint("port", 7777, "server port")
	sender := flag.Uint("sender", 1, "sender id stamped on the message")
	payload := flag.String("payload", "", "payload bytes to send")
	wait := flag.Duration("wait", time.Second, "how long to poll for replies before exiting")
	flag.Parse()

	logging.ConfigureRuntime()
	observability.InitLogger("peerwire-send")

	ccfg := client.DefaultConfig()
	dialHost, dialPort := *host, uint16(*port)
	if *configPath != "" {
		loaded, err := config.LoadClientConfig(*configPath)
		if err != nil {
			return err
		}
		dialHost, dialPort = loaded.Host, loaded.Port
		ccfg.ConnectTimeout = time.Duration(loaded.ConnectTimeoutMS) * time.Millisecond
	}
	if *port > 65535 {
		return fmt.Errorf("port %d out of range", *port)
	}

	c := client.NewWithConfig(dialHost, dialPort, ccfg)
	c.Handle(client.Events{
		OnMessage: func(m protocol.Message) {
			log.Info().Str("type", m.Type.String()).
				Uint32("sender", m.SenderID).
				Int("payload", len(m.Payload)).
				Msg("reply_received")
		},
		OnDisconnected: func(reason string) {
			log.Info().Str("reason", reason).Msg("disconnected")
		},
	})

	if err := c.Connect(); err != nil {
		return err
	}
	defer c.Disconnect()

	m := protocol.NewMessage(protocol.MessageData, uint32(*sender), protocol.BroadcastID, []byte(*payload))
	if err := c.Send(m); err != nil {
		return err
	}
	log.Info().Int("payload", len(m.Payload)).Msg("message_sent")

	deadline := time.Now().Add(*wait)
	for time.Now().Before(deadline) && c.IsConnected() {
		c.Poll()
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}
