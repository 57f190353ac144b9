package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"lareira/internal/config"
	"lareira/internal/engine"
	"lareira/internal/events"
	"lareira/internal/network"
	"lareira/internal/services/cluster"
	"lareira/internal/session"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	// Sem NATS o publisher fica nil e os eventos viram no-op.
	var pub *events.Publisher
	if cfg.NatsURL != "" {
		pub, err = events.Connect(cfg.NatsURL, log)
		if err != nil {
			log.Warn("nats unavailable, events disabled", zap.Error(err))
		} else {
			defer pub.Close()
		}
	}

	manager := session.NewManager(engine.NewSimGame, pub, session.MatchmakerOptions{
		TickInterval:      cfg.TickInterval,
		MaxMatchesPerTick: cfg.MaxMatchesPerTick,
		SettleDelay:       cfg.SettleDelay,
		IdleTimeout:       cfg.IdleTimeout,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go manager.Matchmaker().Run(ctx)

	if cfg.ConsulAddress != "" {
		if err := cluster.Register(cfg.ConsulAddress, cfg.ServiceName, listenPort(cfg.Address), log); err != nil {
			log.Warn("consul registration failed, continuing without", zap.Error(err))
		}
	}

	server := network.NewServer(manager, log)
	log.Info("server listening", zap.String("address", cfg.Address))
	if err := server.Listen(cfg.Address); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func listenPort(address string) int {
	_, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(portStr)
	return port
}
