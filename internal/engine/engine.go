// Package engine define a fronteira com o motor de regras do jogo de cartas.
// Esta camada só consome o motor: ela entrega uma configuração, inicia a partida,
// submete ações escolhidas e lê opções legais, estado e histórico. As regras em si
// vivem do outro lado da interface.
package engine

import "fmt"

// State é o estado macro de uma partida no motor.
type State int

const (
	StateInvalid State = iota
	StateLoading
	StateRunning
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "Invalid"
	case StateLoading:
		return "Loading"
	case StateRunning:
		return "Running"
	case StateComplete:
		return "Complete"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// PlayState é o resultado (ou situação corrente) de cada lado da partida.
type PlayState int

const (
	PlayStateInvalid PlayState = iota
	PlayStatePlaying
	PlayStateWinning
	PlayStateLosing
	PlayStateWon
	PlayStateLost
	PlayStateTied
	PlayStateConceded
)

var playStateNames = map[PlayState]string{
	PlayStateInvalid:  "Invalid",
	PlayStatePlaying:  "Playing",
	PlayStateWinning:  "Winning",
	PlayStateLosing:   "Losing",
	PlayStateWon:      "Won",
	PlayStateLost:     "Lost",
	PlayStateTied:     "Tied",
	PlayStateConceded: "Conceded",
}

func (s PlayState) String() string {
	if name, ok := playStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PlayState(%d)", int(s))
}

// OptionType é o tipo de uma opção legal oferecida a um jogador.
type OptionType int

const (
	OptionPass OptionType = iota
	OptionEndTurn
	OptionPower
)

func (t OptionType) String() string {
	switch t {
	case OptionPass:
		return "Pass"
	case OptionEndTurn:
		return "EndTurn"
	case OptionPower:
		return "Power"
	}
	return fmt.Sprintf("OptionType(%d)", int(t))
}

// PlayOption descreve a entidade que age e seus alvos possíveis.
type PlayOption struct {
	EntityID int   `json:"entityId"`
	Targets  []int `json:"targets,omitempty"`
}

// PowerOption é uma ação candidata descrita pelo motor. A estrutura atravessa o
// fio intacta e volta intacta quando o jogador escolhe.
type PowerOption struct {
	Type       OptionType   `json:"type"`
	MainOption *PlayOption  `json:"mainOption,omitempty"`
	SubOptions []PlayOption `json:"subOptions,omitempty"`
}

// CardKind é a categoria da carta de uma entidade, usada só para decidir qual
// chamada do motor uma opção escolhida vira.
type CardKind int

const (
	CardMinion CardKind = iota
	CardHero
	CardHeroPower
	CardSpell
	CardWeapon
)

func (k CardKind) String() string {
	switch k {
	case CardMinion:
		return "Minion"
	case CardHero:
		return "Hero"
	case CardHeroPower:
		return "HeroPower"
	case CardSpell:
		return "Spell"
	case CardWeapon:
		return "Weapon"
	}
	return fmt.Sprintf("CardKind(%d)", int(k))
}

// Entity é a visão mínima de uma entidade que o mapeamento opção->ação precisa.
type Entity struct {
	ID     int
	Kind   CardKind
	InPlay bool
	Owner  int
}

// HistoryType é a tag do registro de mudança de estado. União fechada: decodifica
// o payload só depois de conhecer a tag, nunca por reflexão aberta.
type HistoryType int

const (
	HistoryCreateGame HistoryType = iota
	HistoryFullEntity
	HistoryShowEntity
	HistoryHideEntity
	HistoryTagChange
	HistoryBlockStart
	HistoryBlockEnd
	HistoryMetadata
)

var historyTypeNames = map[HistoryType]string{
	HistoryCreateGame: "CreateGame",
	HistoryFullEntity: "FullEntity",
	HistoryShowEntity: "ShowEntity",
	HistoryHideEntity: "HideEntity",
	HistoryTagChange:  "TagChange",
	HistoryBlockStart: "BlockStart",
	HistoryBlockEnd:   "BlockEnd",
	HistoryMetadata:   "Metadata",
}

func (t HistoryType) String() string {
	if name, ok := historyTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("HistoryType(%d)", int(t))
}

// HistoryEntry é um delta atômico de estado produzido pelo motor. As entradas são
// ordenadas e quem consome DEVE aplicá-las na ordem recebida.
type HistoryEntry struct {
	Type     HistoryType `json:"type"`
	GameID   int         `json:"gameId,omitempty"`
	EntityID int         `json:"entityId,omitempty"`
	Tag      int         `json:"tag,omitempty"`
	Value    int         `json:"value,omitempty"`
	Block    int         `json:"block,omitempty"`
	Info     string      `json:"info,omitempty"`
}

// ActionType é o tipo concreto de ação que a sessão submete ao motor.
type ActionType int

const (
	ActionEndTurn ActionType = iota
	ActionMinionAttack
	ActionHeroAttack
	ActionHeroPower
	ActionPlayCard
)

func (t ActionType) String() string {
	switch t {
	case ActionEndTurn:
		return "EndTurn"
	case ActionMinionAttack:
		return "MinionAttack"
	case ActionHeroAttack:
		return "HeroAttack"
	case ActionHeroPower:
		return "HeroPower"
	case ActionPlayCard:
		return "PlayCard"
	}
	return fmt.Sprintf("ActionType(%d)", int(t))
}

// Action é uma ação concreta já resolvida a partir de uma PowerOption escolhida.
type Action struct {
	Type      ActionType
	EntityID  int
	TargetID  int
	Position  int
	SubOption int
}

// HeroClass das configurações de partida.
type HeroClass int

const (
	ClassDruid HeroClass = iota
	ClassHunter
	ClassMage
	ClassPaladin
	ClassPriest
	ClassRogue
	ClassShaman
	ClassWarlock
	ClassWarrior

	NumHeroClasses = 9
)

// FormatType da partida.
type FormatType int

const (
	FormatStandard FormatType = iota
	FormatWild
)

// Config é a configuração fixa entregue ao motor na criação da partida.
type Config struct {
	Format       FormatType
	Player1Class HeroClass
	Player2Class HeroClass
	SkipMulligan bool
	Shuffle      bool
	FillDecks    bool
	History      bool
	Seed         int64
}

// Game é o punho de uma partida em andamento dentro do motor.
//
// History drena as entradas produzidas desde a última chamada; Options devolve o
// conjunto de ações legais corrente para um jogador (1 ou 2); Entity expõe a visão
// mínima necessária para o mapeamento opção->ação.
type Game interface {
	Start() error
	State() State
	CurrentPlayer() int
	Options(playerID int) []PowerOption
	Submit(action Action) error
	History() []HistoryEntry
	PlayState(playerID int) PlayState
	Entity(id int) (Entity, bool)
}

// Factory cria uma partida a partir de uma configuração.
type Factory func(cfg Config) (Game, error)
