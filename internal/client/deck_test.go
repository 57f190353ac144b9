package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lareira/internal/protocol"
)

func TestDeckConfigType(t *testing.T) {
	assert.Equal(t, protocol.DeckRandom, DeckConfig{}.Type(), "empty kind means random")
	assert.Equal(t, protocol.DeckRandom, DeckConfig{Kind: "random"}.Type())
	assert.Equal(t, protocol.DeckString, DeckConfig{Kind: "deckstring"}.Type())
	assert.Equal(t, protocol.DeckCardIDs, DeckConfig{Kind: "cardIds"}.Type())
	assert.Equal(t, protocol.DeckNone, DeckConfig{Kind: "wild"}.Type())
}

func TestLoadDeck(t *testing.T) {
	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "deck.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	t.Run("valid file", func(t *testing.T) {
		deck, err := LoadDeck(write(t, "type: deckstring\ndata: AAEBAf0E\n"))
		require.NoError(t, err)
		assert.Equal(t, protocol.DeckString, deck.Type())
		assert.Equal(t, "AAEBAf0E", deck.Data)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := LoadDeck(write(t, "type: wild\n"))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadDeck(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("broken yaml", func(t *testing.T) {
		_, err := LoadDeck(write(t, "type: [unclosed"))
		assert.Error(t, err)
	})
}
