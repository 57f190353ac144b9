package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilPublisherIsSafe(t *testing.T) {
	// Rodar sem NATS é um modo suportado: o publisher nil engole tudo.
	var p *Publisher
	assert.NotPanics(t, func() {
		p.UserState(UserStateEvent{ID: 10000, AccountName: "ana", From: "None", To: "Queued"})
		p.MatchResult(MatchResultEvent{GameID: 10000, Account1: "ana", Account2: "bruno"})
		p.Close()
	})
}
