package session

import "sync"

// matchTable guarda as partidas vivas, indexadas pelo gameId. O roteamento de
// GameResponse e a varredura do matchmaker acessam o mapa de goroutines
// diferentes.
type matchTable struct {
	mu      sync.RWMutex
	matches map[int]*Match
}

func newMatchTable() *matchTable {
	return &matchTable{matches: make(map[int]*Match)}
}

// insert registra a partida. Devolve false se o gameId já está em uso; o
// chamador decide o que fazer com os jogadores.
func (t *matchTable) insert(m *Match) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.matches[m.GameID()]; exists {
		return false
	}
	t.matches[m.GameID()] = m
	return true
}

func (t *matchTable) lookup(gameID int) (*Match, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.matches[gameID]
	return m, ok
}

func (t *matchTable) remove(gameID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.matches, gameID)
}

// all devolve um retrato das partidas vivas, em qualquer ordem.
func (t *matchTable) all() []*Match {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Match, 0, len(t.matches))
	for _, m := range t.matches {
		out = append(out, m)
	}
	return out
}

func (t *matchTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.matches)
}
