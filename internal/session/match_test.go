package session

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lareira/internal/engine"
	"lareira/internal/protocol"
)

type matchHarness struct {
	match *Match
	reg   *Registry
	p1    *UserSession
	p2    *UserSession
	conn1 *fakeConn
	conn2 *fakeConn
}

// newMatchHarness monta uma partida entre duas contas já convidadas. O settle é
// longo de propósito: os testes chamam Start() na mão para manter o controle.
func newMatchHarness(t *testing.T) *matchHarness {
	t.Helper()
	reg := NewRegistry(testLogger(), nil)
	conn1, conn2 := &fakeConn{}, &fakeConn{}

	p1, err := reg.Register("ana", conn1)
	require.NoError(t, err)
	p2, err := reg.Register("bruno", conn2)
	require.NoError(t, err)
	reg.SetUserState(p1, protocol.UserInvited)
	reg.SetUserState(p2, protocol.UserInvited)

	m := newMatch(10000, p1, p2, reg, engine.NewSimGame, nil,
		time.Hour, rand.New(rand.NewSource(1)), testLogger())
	return &matchHarness{match: m, reg: reg, p1: p1, p2: p2, conn1: conn1, conn2: conn2}
}

// reply injeta uma resposta de jogo como se tivesse vindo do fio, passando pelo
// mesmo builder que o cliente real usa.
func (h *matchHarness) reply(t *testing.T, pkt protocol.Packet) {
	t.Helper()
	var resp protocol.GameResponse
	require.NoError(t, protocol.Unmarshal(pkt.Payload, &resp))
	h.match.HandleResponse(pkt.ID, resp)
}

func (h *matchHarness) acceptInvitations(t *testing.T) {
	t.Helper()
	h.match.Initialize()
	h.reply(t, protocol.ClientInvitationReply(h.p1.ID(), h.p1.Token(), 10000, protocol.StateSuccess))
	h.reply(t, protocol.ClientInvitationReply(h.p2.ID(), h.p2.Token(), 10000, protocol.StateSuccess))
}

func (h *matchHarness) prepareBoth(t *testing.T) {
	t.Helper()
	h.reply(t, protocol.ClientPreparationReply(h.p1.ID(), h.p1.Token(), 10000, protocol.DeckRandom, "", protocol.StateSuccess))
	h.reply(t, protocol.ClientPreparationReply(h.p2.ID(), h.p2.Token(), 10000, protocol.DeckRandom, "", protocol.StateSuccess))
}

// lastOptions decodifica o último conjunto de opções que a conexão recebeu.
func lastOptions(t *testing.T, conn *fakeConn) protocol.PowerAllOptions {
	t.Helper()
	reqs := conn.gameRequests(protocol.GameRequestPowerAllOptions)
	require.NotEmpty(t, reqs, "no options were relayed")
	var opts protocol.PowerAllOptions
	require.NoError(t, protocol.Unmarshal(reqs[len(reqs)-1].Data, &opts))
	return opts
}

func TestMatchInvitationFlow(t *testing.T) {
	h := newMatchHarness(t)
	h.match.Initialize()

	assert.Equal(t, 10000, h.p1.GameID())
	assert.Equal(t, protocol.PlayerInvitation, h.p1.PlayerState())
	require.Len(t, h.conn1.gameRequests(protocol.GameRequestInvitation), 1)
	require.Len(t, h.conn2.gameRequests(protocol.GameRequestInvitation), 1)

	h.reply(t, protocol.ClientInvitationReply(h.p1.ID(), h.p1.Token(), 10000, protocol.StateSuccess))

	assert.Equal(t, protocol.UserPrepared, h.p1.UserState())
	assert.Equal(t, protocol.PlayerConfig, h.p1.PlayerState())
	assert.Len(t, h.conn1.gameRequests(protocol.GameRequestPreparation), 1)
	// O outro jogador ainda não respondeu: nada de preparação para ele.
	assert.Empty(t, h.conn2.gameRequests(protocol.GameRequestPreparation))
}

func TestMatchPreparationStartsTheGame(t *testing.T) {
	h := newMatchHarness(t)
	h.acceptInvitations(t)

	h.reply(t, protocol.ClientPreparationReply(h.p1.ID(), h.p1.Token(), 10000, protocol.DeckRandom, "", protocol.StateSuccess))
	assert.Equal(t, protocol.UserInGame, h.p1.UserState())
	assert.Empty(t, h.conn1.gameRequests(protocol.GameRequestGameStart), "start waits for both")

	h.reply(t, protocol.ClientPreparationReply(h.p2.ID(), h.p2.Token(), 10000, protocol.DeckRandom, "", protocol.StateSuccess))
	require.Len(t, h.conn1.gameRequests(protocol.GameRequestGameStart), 1)
	require.Len(t, h.conn2.gameRequests(protocol.GameRequestGameStart), 1)

	var start protocol.GameStart
	reqs := h.conn1.gameRequests(protocol.GameRequestGameStart)
	require.NoError(t, protocol.Unmarshal(reqs[0].Data, &start))
	assert.Equal(t, "ana", start.Player1.AccountName)
	assert.Equal(t, "bruno", start.Player2.AccountName)

	// O settle ainda não venceu: o motor não existe, opções não saíram.
	assert.Empty(t, h.conn1.gameRequests(protocol.GameRequestPowerAllOptions))

	h.match.Start()
	assert.NotEmpty(t, h.conn1.gameRequests(protocol.GameRequestPowerHistory))
	opts1 := lastOptions(t, h.conn1)
	assert.Equal(t, 1, opts1.PlayerID)
	assert.NotEmpty(t, opts1.Options)
	opts2 := lastOptions(t, h.conn2)
	require.Len(t, opts2.Options, 1)
	assert.Equal(t, engine.OptionPass, opts2.Options[0].Type)
}

func TestMatchStartIsIdempotent(t *testing.T) {
	h := newMatchHarness(t)
	h.acceptInvitations(t)
	h.prepareBoth(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.match.Start()
		}()
	}
	wg.Wait()

	assert.Len(t, h.conn1.gameRequests(protocol.GameRequestPowerHistory), 1,
		"opening history must go out exactly once")
	assert.Len(t, h.conn1.gameRequests(protocol.GameRequestPowerAllOptions), 1)
}

func TestMatchTurnLoop(t *testing.T) {
	h := newMatchHarness(t)
	h.acceptInvitations(t)
	h.prepareBoth(t)
	h.match.Start()

	t.Run("end turn flips the current player", func(t *testing.T) {
		opts := lastOptions(t, h.conn1)
		require.Equal(t, engine.OptionEndTurn, opts.Options[0].Type)

		// Campos de alvo e posição num fim de turno são lixo do cliente e não
		// podem mudar a ação.
		h.reply(t, protocol.ClientPowerOptionReply(h.p1.ID(), h.p1.Token(), 10000, opts.Options[0], 424242, 9, 3))

		// Conjuntos frescos para os dois lados; agora quem age é o jogador 2.
		fresh1 := lastOptions(t, h.conn1)
		require.Len(t, fresh1.Options, 1)
		assert.Equal(t, engine.OptionPass, fresh1.Options[0].Type)
		fresh2 := lastOptions(t, h.conn2)
		assert.Equal(t, engine.OptionEndTurn, fresh2.Options[0].Type)
	})

	t.Run("pass submits nothing and relays nothing", func(t *testing.T) {
		before := len(h.conn1.gameRequests(protocol.GameRequestPowerAllOptions))
		pass := lastOptions(t, h.conn1).Options[0]
		require.Equal(t, engine.OptionPass, pass.Type)

		h.reply(t, protocol.ClientPowerOptionReply(h.p1.ID(), h.p1.Token(), 10000, pass, 0, 0, 0))

		assert.Len(t, h.conn1.gameRequests(protocol.GameRequestPowerAllOptions), before)
	})

	t.Run("play card relays history", func(t *testing.T) {
		opts := lastOptions(t, h.conn2)
		var play *engine.PowerOption
		for i := range opts.Options {
			if opts.Options[i].Type == engine.OptionPower {
				play = &opts.Options[i]
				break
			}
		}
		require.NotNil(t, play, "hand card expected in the option set")

		before := len(h.conn2.gameRequests(protocol.GameRequestPowerHistory))
		h.reply(t, protocol.ClientPowerOptionReply(h.p2.ID(), h.p2.Token(), 10000, *play, 0, 0, 0))
		assert.Greater(t, len(h.conn2.gameRequests(protocol.GameRequestPowerHistory)), before)
	})
}

func TestMatchStopsOnProtocolViolation(t *testing.T) {
	t.Run("failure status stops the match", func(t *testing.T) {
		h := newMatchHarness(t)
		h.match.Initialize()

		h.reply(t, protocol.ClientInvitationReply(h.p1.ID(), h.p1.Token(), 10000, protocol.StateFail))

		require.Len(t, h.conn1.gameRequests(protocol.GameRequestGameStop), 1)
		require.Len(t, h.conn2.gameRequests(protocol.GameRequestGameStop), 1)

		// Sem partida no motor, os estados terminais saem inválidos.
		var stop protocol.GameStopNotice
		reqs := h.conn1.gameRequests(protocol.GameRequestGameStop)
		require.NoError(t, protocol.Unmarshal(reqs[0].Data, &stop))
		assert.Equal(t, engine.PlayStateInvalid, stop.Play1State)
		assert.Equal(t, engine.PlayStateInvalid, stop.Play2State)
	})

	t.Run("unknown player id stops the match", func(t *testing.T) {
		h := newMatchHarness(t)
		h.match.Initialize()

		h.match.HandleResponse(99999, protocol.GameResponse{State: protocol.StateSuccess, Type: protocol.GameResponseInvitation})
		assert.True(t, h.match.Stopped())
	})
}

func TestMatchDropsForeignOptionEcho(t *testing.T) {
	h := newMatchHarness(t)
	h.acceptInvitations(t)
	h.prepareBoth(t)
	h.match.Start()

	histBefore := len(h.conn1.gameRequests(protocol.GameRequestPowerHistory))
	optsBefore := len(h.conn1.gameRequests(protocol.GameRequestPowerAllOptions))

	// Descritor que nunca saiu no conjunto emitido: eco atrasado ou cliente
	// inventando jogada. Nada é submetido e a partida segue de pé.
	bogus := engine.PowerOption{
		Type:       engine.OptionPower,
		MainOption: &engine.PlayOption{EntityID: 424242},
	}
	h.reply(t, protocol.ClientPowerOptionReply(h.p1.ID(), h.p1.Token(), 10000, bogus, 0, 0, 0))

	assert.False(t, h.match.Stopped())
	assert.Len(t, h.conn1.gameRequests(protocol.GameRequestPowerHistory), histBefore)
	assert.Len(t, h.conn1.gameRequests(protocol.GameRequestPowerAllOptions), optsBefore)

	// Um eco legítimo continua valendo depois do descarte.
	legit := lastOptions(t, h.conn1).Options[0]
	require.Equal(t, engine.OptionEndTurn, legit.Type)
	h.reply(t, protocol.ClientPowerOptionReply(h.p1.ID(), h.p1.Token(), 10000, legit, 0, 0, 0))
	assert.Greater(t, len(h.conn1.gameRequests(protocol.GameRequestPowerAllOptions)), optsBefore)
}

func TestMatchStopAndQuit(t *testing.T) {
	h := newMatchHarness(t)
	h.acceptInvitations(t)
	h.prepareBoth(t)
	h.match.Start()

	h.match.Stop()
	h.match.Stop()
	assert.Len(t, h.conn1.gameRequests(protocol.GameRequestGameStop), 1, "stop must not resend")

	assert.False(t, h.match.Finished())
	h.reply(t, protocol.ClientGameStopReply(h.p1.ID(), h.p1.Token(), 10000, 1, protocol.StateSuccess))
	assert.False(t, h.match.Finished())
	h.reply(t, protocol.ClientGameStopReply(h.p2.ID(), h.p2.Token(), 10000, 2, protocol.StateSuccess))
	assert.True(t, h.match.Finished())

	assert.Equal(t, protocol.PlayerQuit, h.p1.PlayerState())
	assert.Equal(t, protocol.PlayerQuit, h.p2.PlayerState())
}
