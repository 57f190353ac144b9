package session

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lareira/internal/engine"
	"lareira/internal/protocol"
)

func newTestMatchmaker(t *testing.T, opts MatchmakerOptions) (*Matchmaker, *Registry, *matchTable) {
	t.Helper()
	if opts.TickInterval == 0 {
		opts.TickInterval = time.Hour
	}
	if opts.MaxMatchesPerTick == 0 {
		opts.MaxMatchesPerTick = 5
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = time.Hour
	}
	reg := NewRegistry(testLogger(), nil)
	table := newMatchTable()
	mm := NewMatchmaker(reg, table, engine.NewSimGame, nil, opts, testLogger())
	return mm, reg, table
}

func queueAccounts(t *testing.T, reg *Registry, n int) []*UserSession {
	t.Helper()
	users := make([]*UserSession, 0, n)
	for i := 0; i < n; i++ {
		u, err := reg.Register(fmt.Sprintf("conta-%d", i), &fakeConn{})
		require.NoError(t, err)
		reg.SetUserState(u, protocol.UserQueued)
		users = append(users, u)
	}
	return users
}

func TestMatchmakerPairing(t *testing.T) {
	t.Run("even queue pairs everyone in arrival order", func(t *testing.T) {
		mm, reg, table := newTestMatchmaker(t, MatchmakerOptions{})
		users := queueAccounts(t, reg, 4)

		mm.Tick()

		assert.Equal(t, 2, table.len())
		for _, u := range users {
			assert.Equal(t, protocol.UserInvited, u.UserState())
		}
		// Os dois primeiros da fila caem na mesma partida.
		assert.Equal(t, users[0].GameID(), users[1].GameID())
		assert.Equal(t, users[2].GameID(), users[3].GameID())
		assert.NotEqual(t, users[0].GameID(), users[2].GameID())
	})

	t.Run("game ids are monotonic from 10000", func(t *testing.T) {
		mm, reg, _ := newTestMatchmaker(t, MatchmakerOptions{})
		users := queueAccounts(t, reg, 4)

		mm.Tick()

		assert.Equal(t, 10000, users[0].GameID())
		assert.Equal(t, 10001, users[2].GameID())
	})

	t.Run("odd account waits and is first on the next tick", func(t *testing.T) {
		mm, reg, table := newTestMatchmaker(t, MatchmakerOptions{})
		users := queueAccounts(t, reg, 3)

		mm.Tick()

		assert.Equal(t, 1, table.len())
		leftover := users[2]
		assert.Equal(t, protocol.UserQueued, leftover.UserState())

		// Chega mais um: o que sobrou pareia primeiro.
		extra := queueAccounts(t, reg, 1)[0]
		mm.Tick()
		assert.Equal(t, protocol.UserInvited, leftover.UserState())
		assert.Equal(t, leftover.GameID(), extra.GameID())
	})

	t.Run("game id collision requeues the pair instead of losing it", func(t *testing.T) {
		mm, reg, table := newTestMatchmaker(t, MatchmakerOptions{})
		users := queueAccounts(t, reg, 2)

		// Ocupa o primeiro id que o contador vai tentar usar.
		squatter := newMatch(firstGameID, users[0], users[1], reg, engine.NewSimGame,
			nil, time.Hour, rand.New(rand.NewSource(1)), testLogger())
		require.True(t, table.insert(squatter))

		mm.Tick()
		assert.Equal(t, 1, table.len())
		for _, u := range users {
			assert.Equal(t, protocol.UserQueued, u.UserState())
		}

		// O contador já andou; a próxima varredura pareia normalmente.
		mm.Tick()
		assert.Equal(t, 2, table.len())
		assert.Equal(t, firstGameID+1, users[0].GameID())
	})

	t.Run("a tick in flight makes the next one a no-op", func(t *testing.T) {
		mm, reg, table := newTestMatchmaker(t, MatchmakerOptions{})
		queueAccounts(t, reg, 2)

		mm.sweeping.Store(true)
		mm.Tick()
		assert.Equal(t, 0, table.len())

		mm.sweeping.Store(false)
		mm.Tick()
		assert.Equal(t, 1, table.len())
	})

	t.Run("per tick ceiling leaves the excess queued", func(t *testing.T) {
		mm, reg, table := newTestMatchmaker(t, MatchmakerOptions{MaxMatchesPerTick: 5})
		queueAccounts(t, reg, 14)

		mm.Tick()
		assert.Equal(t, 5, table.len())
		assert.Len(t, reg.Queued(), 4)

		mm.Tick()
		assert.Equal(t, 7, table.len())
		assert.Empty(t, reg.Queued())
	})
}

func TestMatchmakerReap(t *testing.T) {
	t.Run("finished match is released and players can requeue", func(t *testing.T) {
		mm, reg, table := newTestMatchmaker(t, MatchmakerOptions{})
		users := queueAccounts(t, reg, 2)
		mm.Tick()
		require.Equal(t, 1, table.len())

		// Os dois saíram: a partida terminou.
		users[0].SetPlayerState(protocol.PlayerQuit)
		users[1].SetPlayerState(protocol.PlayerQuit)

		mm.Tick()
		assert.Equal(t, 0, table.len())
		for _, u := range users {
			assert.Equal(t, protocol.UserNone, u.UserState())
			assert.Equal(t, protocol.NoGame, u.GameID())
			assert.Equal(t, protocol.PlayerNone, u.PlayerState())
		}

		// Fila de novo, partida nova.
		reg.SetUserState(users[0], protocol.UserQueued)
		reg.SetUserState(users[1], protocol.UserQueued)
		mm.Tick()
		assert.Equal(t, 1, table.len())
		assert.Equal(t, 10001, users[0].GameID(), "game ids are never reused")
	})

	t.Run("idle match is force stopped and then released", func(t *testing.T) {
		mm, reg, table := newTestMatchmaker(t, MatchmakerOptions{IdleTimeout: time.Nanosecond})
		queueAccounts(t, reg, 2)
		mm.Tick()
		require.Equal(t, 1, table.len())
		m := table.all()[0]

		time.Sleep(time.Millisecond)
		mm.Tick()
		assert.True(t, m.Stopped(), "first sweep past the deadline forces the stop")
		assert.Equal(t, 1, table.len(), "players still get a chance to ack")

		time.Sleep(time.Millisecond)
		mm.Tick()
		assert.Equal(t, 0, table.len(), "second sweep gives up on the ack")
	})
}
