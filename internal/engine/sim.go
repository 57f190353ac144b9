package engine

import (
	"errors"
	"fmt"
	"math/rand"
)

// Este arquivo traz um motor simulado, pequeno de propósito. Ele existe para que o
// servidor rode de ponta a ponta e para que os testes exerçam o pipeline inteiro
// (histórico, opções, submissão) sem depender de um motor de regras real.

const (
	simStartingHP = 30
	simHandSize   = 3
	simTurnCap    = 50

	// Tags usadas nas entradas TagChange do histórico.
	TagHealth  = 1
	TagTurn    = 2
	TagCurrent = 3

	gameEntityID = 1
)

var errGameNotRunning = errors.New("engine: game is not running")

type simEntity struct {
	Entity
	atk       int
	hp        int
	exhausted bool
	inHand    bool
}

type simPlayer struct {
	hero      *simEntity
	heroPower *simEntity
	hand      []*simEntity
	board     []*simEntity
	powerUsed bool
	playState PlayState
}

// SimGame implementa Game com regras mínimas: heróis com 30 de vida, um poder
// heroico de 1 de dano, lacaios simples e vitória quando um herói morre.
// O acesso é serializado por quem consome (a sessão de partida).
type SimGame struct {
	state    State
	current  int
	turn     int
	nextID   int
	rng      *rand.Rand
	players  [2]*simPlayer
	entities map[int]*simEntity
	pending  []HistoryEntry
	block    int
}

// NewSimGame é a Factory do motor simulado.
func NewSimGame(cfg Config) (Game, error) {
	g := &SimGame{
		state:    StateLoading,
		current:  1,
		nextID:   gameEntityID + 1,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		entities: make(map[int]*simEntity),
	}
	for p := 1; p <= 2; p++ {
		g.players[p-1] = g.newPlayer(p)
	}
	return g, nil
}

func (g *SimGame) newPlayer(owner int) *simPlayer {
	hero := g.spawn(owner, CardHero, 0, simStartingHP, true)
	power := g.spawn(owner, CardHeroPower, 1, 0, false)
	p := &simPlayer{hero: hero, heroPower: power, playState: PlayStatePlaying}
	for i := 0; i < simHandSize; i++ {
		p.hand = append(p.hand, g.drawMinion(owner))
	}
	return p
}

func (g *SimGame) spawn(owner int, kind CardKind, atk, hp int, inPlay bool) *simEntity {
	e := &simEntity{
		Entity: Entity{ID: g.nextID, Kind: kind, InPlay: inPlay, Owner: owner},
		atk:    atk,
		hp:     hp,
	}
	g.nextID++
	g.entities[e.ID] = e
	return e
}

func (g *SimGame) drawMinion(owner int) *simEntity {
	// Lacaios entre 1/1 e 3/3, decididos pela seed da configuração.
	atk := 1 + g.rng.Intn(3)
	hp := 1 + g.rng.Intn(3)
	e := g.spawn(owner, CardMinion, atk, hp, false)
	e.inHand = true
	return e
}

func (g *SimGame) player(id int) *simPlayer {
	if id < 1 || id > 2 {
		return nil
	}
	return g.players[id-1]
}

func (g *SimGame) Start() error {
	if g.state != StateLoading {
		return fmt.Errorf("engine: start on state %s", g.state)
	}
	g.state = StateRunning
	g.turn = 1
	g.record(HistoryEntry{Type: HistoryCreateGame, GameID: gameEntityID})
	for _, p := range g.players {
		g.record(HistoryEntry{Type: HistoryFullEntity, EntityID: p.hero.ID, Value: p.hero.hp})
		g.record(HistoryEntry{Type: HistoryFullEntity, EntityID: p.heroPower.ID})
	}
	g.record(HistoryEntry{Type: HistoryTagChange, EntityID: gameEntityID, Tag: TagCurrent, Value: g.current})
	return nil
}

func (g *SimGame) State() State { return g.state }

func (g *SimGame) CurrentPlayer() int { return g.current }

func (g *SimGame) PlayState(playerID int) PlayState {
	p := g.player(playerID)
	if p == nil {
		return PlayStateInvalid
	}
	return p.playState
}

func (g *SimGame) Entity(id int) (Entity, bool) {
	e, ok := g.entities[id]
	if !ok {
		return Entity{}, false
	}
	return e.Entity, true
}

// History drena as entradas acumuladas desde a última chamada, em ordem de emissão.
func (g *SimGame) History() []HistoryEntry {
	out := g.pending
	g.pending = nil
	return out
}

func (g *SimGame) record(e HistoryEntry) {
	g.pending = append(g.pending, e)
}

// Options devolve as ações legais correntes. O jogador sem o turno recebe apenas
// a opção de passar, para que sempre haja um conjunto não vazio para retransmitir.
func (g *SimGame) Options(playerID int) []PowerOption {
	p := g.player(playerID)
	if p == nil || g.state != StateRunning {
		return nil
	}
	if playerID != g.current {
		return []PowerOption{{Type: OptionPass}}
	}

	opts := []PowerOption{{Type: OptionEndTurn}}
	for _, m := range p.hand {
		opts = append(opts, PowerOption{Type: OptionPower, MainOption: &PlayOption{EntityID: m.ID}})
	}
	targets := g.enemyTargets(playerID)
	for _, m := range p.board {
		if m.exhausted {
			continue
		}
		opts = append(opts, PowerOption{Type: OptionPower, MainOption: &PlayOption{EntityID: m.ID, Targets: targets}})
	}
	if !p.powerUsed {
		opts = append(opts, PowerOption{Type: OptionPower, MainOption: &PlayOption{EntityID: p.heroPower.ID, Targets: targets}})
	}
	return opts
}

func (g *SimGame) enemyTargets(playerID int) []int {
	enemy := g.player(3 - playerID)
	targets := []int{enemy.hero.ID}
	for _, m := range enemy.board {
		targets = append(targets, m.ID)
	}
	return targets
}

// Submit aplica uma ação concreta. Submeter numa partida já encerrada é um erro
// de máquina de estados de quem chama, não um problema de entrada remota.
func (g *SimGame) Submit(action Action) error {
	if g.state != StateRunning {
		return fmt.Errorf("%w: submit of %s", errGameNotRunning, action.Type)
	}

	g.block++
	g.record(HistoryEntry{Type: HistoryBlockStart, Block: g.block, EntityID: action.EntityID, Info: action.Type.String()})
	defer g.record(HistoryEntry{Type: HistoryBlockEnd, Block: g.block})

	switch action.Type {
	case ActionEndTurn:
		g.endTurn()
	case ActionMinionAttack, ActionHeroAttack:
		g.attack(action.EntityID, action.TargetID)
	case ActionHeroPower:
		p := g.player(g.current)
		if p.powerUsed {
			return fmt.Errorf("engine: hero power already used this turn")
		}
		p.powerUsed = true
		g.damage(action.TargetID, 1)
	case ActionPlayCard:
		g.playCard(action.EntityID)
	default:
		return fmt.Errorf("engine: unknown action type %d", int(action.Type))
	}

	g.checkGameOver()
	return nil
}

func (g *SimGame) endTurn() {
	p := g.player(g.current)
	p.powerUsed = false
	for _, m := range p.board {
		m.exhausted = false
	}
	g.current = 3 - g.current
	g.turn++
	next := g.player(g.current)
	next.hand = append(next.hand, g.drawMinion(g.current))
	g.record(HistoryEntry{Type: HistoryTagChange, EntityID: gameEntityID, Tag: TagTurn, Value: g.turn})
	g.record(HistoryEntry{Type: HistoryTagChange, EntityID: gameEntityID, Tag: TagCurrent, Value: g.current})
}

func (g *SimGame) attack(sourceID, targetID int) {
	source, ok := g.entities[sourceID]
	if !ok || !source.InPlay {
		return
	}
	source.exhausted = true
	atk := source.atk
	if source.Kind == CardHero {
		atk = 1
	}
	g.damage(targetID, atk)
}

func (g *SimGame) playCard(entityID int) {
	p := g.player(g.current)
	for i, m := range p.hand {
		if m.ID != entityID {
			continue
		}
		p.hand = append(p.hand[:i], p.hand[i+1:]...)
		m.inHand = false
		m.InPlay = true
		m.exhausted = true
		p.board = append(p.board, m)
		g.record(HistoryEntry{Type: HistoryShowEntity, EntityID: m.ID, Value: m.hp})
		return
	}
}

func (g *SimGame) damage(targetID, amount int) {
	target, ok := g.entities[targetID]
	if !ok || amount <= 0 {
		return
	}
	target.hp -= amount
	g.record(HistoryEntry{Type: HistoryTagChange, EntityID: target.ID, Tag: TagHealth, Value: target.hp})
	if target.hp <= 0 && target.Kind == CardMinion {
		g.removeFromBoard(target)
		g.record(HistoryEntry{Type: HistoryHideEntity, EntityID: target.ID})
	}
}

func (g *SimGame) removeFromBoard(e *simEntity) {
	e.InPlay = false
	p := g.player(e.Owner)
	for i, m := range p.board {
		if m == e {
			p.board = append(p.board[:i], p.board[i+1:]...)
			return
		}
	}
}

func (g *SimGame) checkGameOver() {
	p1, p2 := g.players[0], g.players[1]
	dead1 := p1.hero.hp <= 0
	dead2 := p2.hero.hp <= 0

	switch {
	case dead1 && dead2:
		p1.playState, p2.playState = PlayStateTied, PlayStateTied
	case dead1:
		p1.playState, p2.playState = PlayStateLost, PlayStateWon
	case dead2:
		p1.playState, p2.playState = PlayStateWon, PlayStateLost
	case g.turn > simTurnCap:
		p1.playState, p2.playState = PlayStateTied, PlayStateTied
	default:
		return
	}

	g.state = StateComplete
	g.record(HistoryEntry{Type: HistoryMetadata, Info: fmt.Sprintf("game over on turn %d", g.turn)})
}
