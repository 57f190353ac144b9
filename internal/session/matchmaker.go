package session

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"lareira/internal/engine"
	"lareira/internal/events"
	"lareira/internal/protocol"
)

// Os gameIds crescem monotonicamente a partir daqui e nunca são reaproveitados
// dentro de um mesmo processo.
const firstGameID = 10000

// MatchmakerOptions parametriza a cadência e os limites do pareador.
type MatchmakerOptions struct {
	// Intervalo entre varreduras da fila.
	TickInterval time.Duration
	// Teto de partidas criadas por varredura: o excedente espera o próximo tick.
	MaxMatchesPerTick int
	// Pausa entre o GameStart e a criação da partida no motor.
	SettleDelay time.Duration
	// Partida sem atividade além disso é encerrada à força. Zero desliga.
	IdleTimeout time.Duration
}

// Matchmaker pareia contas enfileiradas em partidas, numa varredura periódica:
// primeiro colhe as partidas terminadas, depois pareia a fila em ordem de
// chegada até o teto do tick. Quem sobra (fila ímpar, teto atingido) segue
// enfileirado e é o primeiro candidato da próxima varredura.
type Matchmaker struct {
	registry *Registry
	table    *matchTable
	factory  engine.Factory
	events   *events.Publisher
	opts     MatchmakerOptions
	log      *zap.Logger

	rng        *rand.Rand
	nextGameID int

	// Garante no máximo uma varredura em voo, mesmo com Tick chamado por fora.
	sweeping atomic.Bool
}

func NewMatchmaker(reg *Registry, table *matchTable, factory engine.Factory, pub *events.Publisher, opts MatchmakerOptions, log *zap.Logger) *Matchmaker {
	return &Matchmaker{
		registry:   reg,
		table:      table,
		factory:    factory,
		events:     pub,
		opts:       opts,
		log:        log,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		nextGameID: firstGameID,
	}
}

// Run roda a varredura periódica até o contexto ser cancelado.
func (mm *Matchmaker) Run(ctx context.Context) {
	ticker := time.NewTicker(mm.opts.TickInterval)
	defer ticker.Stop()

	mm.log.Info("matchmaker running", zap.Duration("tickInterval", mm.opts.TickInterval))
	for {
		select {
		case <-ctx.Done():
			mm.log.Info("matchmaker stopped")
			return
		case <-ticker.C:
			mm.Tick()
		}
	}
}

// Tick executa uma varredura: colheita e pareamento. Se outra varredura ainda
// está em voo, esta é descartada em vez de empilhar.
func (mm *Matchmaker) Tick() {
	if !mm.sweeping.CompareAndSwap(false, true) {
		mm.log.Debug("sweep already in flight, skipping tick")
		return
	}
	defer mm.sweeping.Store(false)

	mm.reap()
	mm.pair()
}

// reap remove as partidas em que os dois jogadores já saíram e encerra à força
// as que passaram do limite de inatividade.
func (mm *Matchmaker) reap() {
	now := time.Now()
	for _, m := range mm.table.all() {
		switch {
		case m.Finished():
			mm.release(m, "finished")

		case mm.opts.IdleTimeout > 0 && now.Sub(m.IdleSince()) > mm.opts.IdleTimeout:
			if m.Stopped() {
				// Já mandamos o GameStop e ninguém respondeu: não espera o
				// ack de quem sumiu.
				mm.release(m, "abandoned")
				continue
			}
			mm.log.Warn("match idle too long, forcing stop", zap.Int("gameId", m.GameID()))
			m.Stop()
		}
	}
}

// release tira a partida da mesa e devolve os jogadores ao estado inicial, para
// que possam enfileirar de novo.
func (mm *Matchmaker) release(m *Match, reason string) {
	mm.table.remove(m.GameID())
	p1, p2 := m.Players()
	for _, u := range []*UserSession{p1, p2} {
		u.SetGameID(protocol.NoGame)
		u.SetPlayerState(protocol.PlayerNone)
		mm.registry.SetUserState(u, protocol.UserNone)
	}
	mm.log.Info("match reaped",
		zap.Int("gameId", m.GameID()),
		zap.String("reason", reason),
		zap.String("player1", p1.AccountName()),
		zap.String("player2", p2.AccountName()))
}

// pair casa as contas enfileiradas em ordem de chegada, até o teto do tick.
func (mm *Matchmaker) pair() {
	queued := mm.registry.Queued()
	created := 0

	for len(queued) >= 2 && created < mm.opts.MaxMatchesPerTick {
		p1, p2 := queued[0], queued[1]
		queued = queued[2:]

		mm.registry.SetUserState(p1, protocol.UserInvited)
		mm.registry.SetUserState(p2, protocol.UserInvited)

		gameID := mm.nextGameID
		mm.nextGameID++

		m := newMatch(gameID, p1, p2, mm.registry, mm.factory, mm.events,
			mm.opts.SettleDelay, rand.New(rand.NewSource(mm.rng.Int63())), mm.log)
		if !mm.table.insert(m) {
			// GameId em uso só acontece com bug no contador, mas os jogadores
			// não pagam por isso: voltam para o fim da fila.
			mm.log.Error("game id collision, requeueing players", zap.Int("gameId", gameID))
			mm.registry.SetUserState(p1, protocol.UserQueued)
			mm.registry.SetUserState(p2, protocol.UserQueued)
			continue
		}

		m.Initialize()
		created++
	}

	if created > 0 || len(queued) > 0 {
		mm.log.Info("sweep complete",
			zap.Int("matchesCreated", created),
			zap.Int("stillQueued", len(queued)),
			zap.Int("liveMatches", mm.table.len()))
	}
}
