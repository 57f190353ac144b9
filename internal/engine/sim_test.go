package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStartedSim(t *testing.T, seed int64) *SimGame {
	t.Helper()
	game, err := NewSimGame(Config{Seed: seed, History: true})
	require.NoError(t, err)
	require.NoError(t, game.Start())
	return game.(*SimGame)
}

func TestSimGameStart(t *testing.T) {
	t.Run("start moves to running and emits the opening history", func(t *testing.T) {
		g := newStartedSim(t, 1)
		assert.Equal(t, StateRunning, g.State())
		assert.Equal(t, 1, g.CurrentPlayer())

		entries := g.History()
		require.NotEmpty(t, entries)
		assert.Equal(t, HistoryCreateGame, entries[0].Type)
		// O segundo History vem vazio: o lote foi drenado.
		assert.Empty(t, g.History())
	})

	t.Run("double start is refused", func(t *testing.T) {
		g := newStartedSim(t, 1)
		assert.Error(t, g.Start())
	})

	t.Run("same seed gives the same opening hands", func(t *testing.T) {
		a := newStartedSim(t, 42)
		b := newStartedSim(t, 42)
		assert.Equal(t, a.Options(1), b.Options(1))
	})
}

func TestSimGameOptions(t *testing.T) {
	g := newStartedSim(t, 7)

	t.Run("current player always has end turn plus the hand", func(t *testing.T) {
		opts := g.Options(1)
		require.NotEmpty(t, opts)
		assert.Equal(t, OptionEndTurn, opts[0].Type)
		// Mão inicial inteira jogável, mais o poder heroico.
		assert.Len(t, opts, 1+simHandSize+1)
	})

	t.Run("waiting player only passes", func(t *testing.T) {
		opts := g.Options(2)
		require.Len(t, opts, 1)
		assert.Equal(t, OptionPass, opts[0].Type)
	})

	t.Run("unknown player has no options", func(t *testing.T) {
		assert.Nil(t, g.Options(3))
	})
}

func TestSimGameTurns(t *testing.T) {
	g := newStartedSim(t, 7)
	g.History()

	require.NoError(t, g.Submit(Action{Type: ActionEndTurn}))
	assert.Equal(t, 2, g.CurrentPlayer())

	entries := g.History()
	require.NotEmpty(t, entries)
	assert.Equal(t, HistoryBlockStart, entries[0].Type)
	assert.Equal(t, HistoryBlockEnd, entries[len(entries)-1].Type)

	require.NoError(t, g.Submit(Action{Type: ActionEndTurn}))
	assert.Equal(t, 1, g.CurrentPlayer())
}

func TestSimGamePlayAndAttack(t *testing.T) {
	g := newStartedSim(t, 7)

	// Joga o primeiro lacaio da mão.
	hand := g.players[0].hand
	require.NotEmpty(t, hand)
	minion := hand[0]
	require.NoError(t, g.Submit(Action{Type: ActionPlayCard, EntityID: minion.ID}))
	assert.True(t, minion.InPlay)
	assert.True(t, minion.exhausted, "minion cannot attack the turn it is played")

	// No turno seguinte dele, ataca o herói inimigo.
	require.NoError(t, g.Submit(Action{Type: ActionEndTurn}))
	require.NoError(t, g.Submit(Action{Type: ActionEndTurn}))
	enemyHero := g.players[1].hero
	before := enemyHero.hp
	require.NoError(t, g.Submit(Action{Type: ActionMinionAttack, EntityID: minion.ID, TargetID: enemyHero.ID}))
	assert.Equal(t, before-minion.atk, enemyHero.hp)
}

func TestSimGameHeroPower(t *testing.T) {
	g := newStartedSim(t, 7)
	p1 := g.players[0]
	enemyHero := g.players[1].hero
	before := enemyHero.hp

	require.NoError(t, g.Submit(Action{Type: ActionHeroPower, EntityID: p1.heroPower.ID, TargetID: enemyHero.ID}))
	assert.Equal(t, before-1, enemyHero.hp)

	t.Run("once per turn", func(t *testing.T) {
		assert.Error(t, g.Submit(Action{Type: ActionHeroPower, EntityID: p1.heroPower.ID, TargetID: enemyHero.ID}))
	})
}

func TestSimGameCompletion(t *testing.T) {
	t.Run("hero death ends the game", func(t *testing.T) {
		g := newStartedSim(t, 7)
		enemyHero := g.players[1].hero
		enemyHero.hp = 1
		require.NoError(t, g.Submit(Action{Type: ActionHeroPower, EntityID: g.players[0].heroPower.ID, TargetID: enemyHero.ID}))

		assert.Equal(t, StateComplete, g.State())
		assert.Equal(t, PlayStateWon, g.PlayState(1))
		assert.Equal(t, PlayStateLost, g.PlayState(2))
	})

	t.Run("turn cap ties the game", func(t *testing.T) {
		g := newStartedSim(t, 7)
		for i := 0; i <= simTurnCap && g.State() == StateRunning; i++ {
			require.NoError(t, g.Submit(Action{Type: ActionEndTurn}))
		}
		assert.Equal(t, StateComplete, g.State())
		assert.Equal(t, PlayStateTied, g.PlayState(1))
		assert.Equal(t, PlayStateTied, g.PlayState(2))
	})

	t.Run("submit after the end is an error", func(t *testing.T) {
		g := newStartedSim(t, 7)
		g.players[1].hero.hp = 1
		require.NoError(t, g.Submit(Action{Type: ActionHeroPower, EntityID: g.players[0].heroPower.ID, TargetID: g.players[1].hero.ID}))
		assert.Error(t, g.Submit(Action{Type: ActionEndTurn}))
		assert.Nil(t, g.Options(1))
	})
}
