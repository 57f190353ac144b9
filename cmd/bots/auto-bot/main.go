package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"lareira/internal/client"
)

// auto-bot sobe um enxame de clientes que jogam sozinhos: registram, entram na
// fila, aceitam tudo e escolhem opções aleatórias, partida atrás de partida,
// até o processo ser interrompido. Serve para exercitar o servidor de ponta a
// ponta.
func main() {
	addr := flag.String("addr", "localhost:2010", "endereço do servidor")
	count := flag.Int("count", 2, "quantos bots subir")
	prefix := flag.String("prefix", "bot", "prefixo do nome das contas")
	statsEvery := flag.Duration("stats", 10*time.Second, "intervalo do poll de stats (0 desliga)")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	bots := make([]*client.GameClient, 0, *count)

	for i := 0; i < *count; i++ {
		bot := spawn(fmt.Sprintf("%s-%d", *prefix, i), *addr, rng, log)
		if bot == nil {
			continue
		}
		bots = append(bots, bot)
	}
	if len(bots) == 0 {
		log.Fatal("no bot managed to connect")
	}

	// Um único bot faz o poll de stats: o retrato do servidor é global.
	if *statsEvery > 0 {
		go bots[0].PollStats(ctx, *statsEvery)
	}

	<-ctx.Done()
	for i, bot := range bots {
		log.Info("bot results", zap.Int("bot", i), zap.Any("statistics", stringKeys(bot)))
		bot.Disconnect()
	}
}

func spawn(account, addr string, rng *rand.Rand, log *zap.Logger) *client.GameClient {
	botLog := log.With(zap.String("account", account))

	var bot *client.GameClient
	bot = client.New(client.Options{
		Log:    botLog,
		Picker: client.RandomPicker(rng),
		OnStateChange: func(old, new client.State) {
			// Registrado (no login ou voltando de uma partida): fila de novo.
			if new == client.StateRegistered {
				go func() {
					if err := bot.Queue(); err != nil {
						botLog.Warn("requeue failed", zap.Error(err))
					}
				}()
			}
		},
	})

	if err := bot.Connect(addr); err != nil {
		botLog.Warn("connect failed", zap.Error(err))
		return nil
	}
	if err := bot.HandShake(account); err != nil {
		botLog.Warn("handshake failed", zap.Error(err))
		bot.Disconnect()
		return nil
	}
	return bot
}

func stringKeys(bot *client.GameClient) map[string]int {
	out := make(map[string]int)
	for state, n := range bot.Statistics() {
		out[state.String()] = n
	}
	return out
}
