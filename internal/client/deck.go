package client

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"lareira/internal/protocol"
)

// DeckConfig descreve o baralho enviado na preparação. O zero value significa
// "sem preferência": o servidor decide (na prática, baralho aleatório).
type DeckConfig struct {
	// Kind: "random", "deckstring" ou "cardIds". Vazio vale "random".
	Kind string `yaml:"type"`
	// Data: código do baralho ou lista de cartas separada por vírgula,
	// conforme o Kind.
	Data string `yaml:"data"`
}

// Type traduz o Kind textual para a tag do fio.
func (d DeckConfig) Type() protocol.DeckType {
	switch d.Kind {
	case "", "random":
		return protocol.DeckRandom
	case "deckstring":
		return protocol.DeckString
	case "cardIds":
		return protocol.DeckCardIDs
	}
	return protocol.DeckNone
}

// LoadDeck lê um DeckConfig de um arquivo YAML.
func LoadDeck(path string) (DeckConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return DeckConfig{}, fmt.Errorf("read deck file: %w", err)
	}
	var deck DeckConfig
	if err := yaml.Unmarshal(raw, &deck); err != nil {
		return DeckConfig{}, fmt.Errorf("parse deck file %s: %w", path, err)
	}
	if deck.Type() == protocol.DeckNone {
		return DeckConfig{}, fmt.Errorf("deck file %s: unknown type %q", path, deck.Kind)
	}
	return deck, nil
}
