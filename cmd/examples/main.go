package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcpstudio/chatlink/pkg/api"
	"github.com/mcpstudio/chatlink/pkg/eventchannel"
	"github.com/mcpstudio/chatlink/pkg/logging"
)

func main() {
	logger := logging.NewZapLogger(
		logging.WithDevelopmentMode(),
		logging.WithLogLevel(logging.DEBUG),
	)

	wsURL := envOr("CHATLINK_WS_URL", "ws://localhost:8000")
	httpURL := envOr("CHATLINK_HTTP_URL", "http://localhost:8000")

	// Event channel: one websocket carrying every subscribed stream.
	opts := eventchannel.NewOptions(wsURL)
	opts.Logger = logger
	channel := eventchannel.NewChannel(opts)
	defer channel.Disconnect()

	channel.Subscribe(eventchannel.EventServerStatusUpdate,
		eventchannel.HandlerFunc(func(env eventchannel.Envelope) {
			logger.Info("server status changed",
				logging.String("payload", string(env.Data)))
		}))

	channel.Subscribe(eventchannel.EventToolsUpdate,
		eventchannel.HandlerFunc(func(env eventchannel.Envelope) {
			logger.Info("tool list changed",
				logging.String("payload", string(env.Data)))
		}))

	channel.Subscribe(eventchannel.EventToolExecutionResult,
		eventchannel.HandlerFunc(func(env eventchannel.Envelope) {
			logger.Info("tool execution finished",
				logging.String("payload", string(env.Data)))
		}))

	channel.Subscribe(eventchannel.EventError,
		eventchannel.HandlerFunc(func(env eventchannel.Envelope) {
			logger.Error("event channel error",
				logging.String("payload", string(env.Data)))
		}))

	logger.Info("connecting event channel",
		logging.String("url", wsURL),
		logging.String("client_id", channel.ClientID()),
	)
	channel.Connect()

	// Ask for initial snapshots once the channel is up.
	waitForOpen(channel, 10*time.Second)
	if err := channel.RequestStatus(); err != nil {
		logger.Warn("status snapshot request dropped", logging.Error(err))
	}
	if err := channel.RequestTools(); err != nil {
		logger.Warn("tools snapshot request dropped", logging.Error(err))
	}

	// REST client: commands whose results come back over the channel.
	client := api.NewClient(api.DefaultConfig(httpURL))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	servers, err := client.ListServers(ctx)
	if err != nil {
		logger.Error("failed to list servers", logging.Error(err))
		os.Exit(1)
	}

	for _, server := range servers {
		logger.Info("configured server",
			logging.Int("id", server.ID),
			logging.String("name", server.Name),
			logging.String("status", string(server.Status)),
		)
		if server.Enabled && server.Status == api.ServerStatusDisconnected {
			if err := client.ConnectServer(ctx, server.ID); err != nil {
				logger.Warn("connect command failed",
					logging.Int("server_id", server.ID),
					logging.Error(err),
				)
			}
		}
	}

	tools, err := client.ListTools(ctx)
	if err != nil {
		logger.Error("failed to list tools", logging.Error(err))
	} else {
		logger.Info("tools available", logging.Int("total", tools.TotalTools))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("running... press Ctrl+C to exit")
	<-sigChan

	logger.Info("shutting down")
}

func waitForOpen(channel *eventchannel.Channel, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if channel.IsConnected() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
