package protocol

import (
	"encoding/json"
	"fmt"

	"lareira/internal/engine"
)

// RequestState é o resultado de qualquer requisição do protocolo.
type RequestState int

const (
	StateNone RequestState = iota
	StateFail
	StateSuccess
)

func (s RequestState) String() string {
	switch s {
	case StateNone:
		return "None"
	case StateFail:
		return "Fail"
	case StateSuccess:
		return "Success"
	}
	return fmt.Sprintf("RequestState(%d)", int(s))
}

// ResponseType é a sub-tag dos envelopes MessageResponse.
type ResponseType int

const (
	ResponseNone ResponseType = iota
	ResponseHandShake
	ResponseStats
	ResponseQueue
)

func (t ResponseType) String() string {
	switch t {
	case ResponseNone:
		return "None"
	case ResponseHandShake:
		return "HandShake"
	case ResponseStats:
		return "Stats"
	case ResponseQueue:
		return "Queue"
	}
	return fmt.Sprintf("ResponseType(%d)", int(t))
}

// GameRequestType é a sub-tag dos envelopes MessageGameRequest (servidor -> cliente).
type GameRequestType int

const (
	GameRequestInvitation GameRequestType = iota
	GameRequestPreparation
	GameRequestGameStart
	GameRequestPowerHistory
	GameRequestPowerAllOptions
	GameRequestGameStop
)

var gameRequestNames = map[GameRequestType]string{
	GameRequestInvitation:      "Invitation",
	GameRequestPreparation:     "Preparation",
	GameRequestGameStart:       "GameStart",
	GameRequestPowerHistory:    "PowerHistory",
	GameRequestPowerAllOptions: "PowerAllOptions",
	GameRequestGameStop:        "GameStop",
}

func (t GameRequestType) String() string {
	if name, ok := gameRequestNames[t]; ok {
		return name
	}
	return fmt.Sprintf("GameRequestType(%d)", int(t))
}

// GameResponseType é a sub-tag dos envelopes MessageGameResponse (cliente -> servidor).
type GameResponseType int

const (
	GameResponseInvitation GameResponseType = iota
	GameResponsePreparation
	GameResponsePowerOption
	GameResponseGameStop
)

var gameResponseNames = map[GameResponseType]string{
	GameResponseInvitation:  "Invitation",
	GameResponsePreparation: "Preparation",
	GameResponsePowerOption: "PowerOption",
	GameResponseGameStop:    "GameStop",
}

func (t GameResponseType) String() string {
	if name, ok := gameResponseNames[t]; ok {
		return name
	}
	return fmt.Sprintf("GameResponseType(%d)", int(t))
}

// UserState é a visão do SERVIDOR sobre o ciclo de vida de uma conta.
type UserState int

const (
	UserNone UserState = iota
	UserQueued
	UserInvited
	UserPrepared
	UserInGame
)

func (s UserState) String() string {
	switch s {
	case UserNone:
		return "None"
	case UserQueued:
		return "Queued"
	case UserInvited:
		return "Invited"
	case UserPrepared:
		return "Prepared"
	case UserInGame:
		return "InGame"
	}
	return fmt.Sprintf("UserState(%d)", int(s))
}

// PlayerState é a visão local da sessão de partida sobre cada jogador.
type PlayerState int

const (
	PlayerNone PlayerState = iota
	PlayerInvitation
	PlayerConfig
	PlayerGame
	PlayerQuit
)

func (s PlayerState) String() string {
	switch s {
	case PlayerNone:
		return "None"
	case PlayerInvitation:
		return "Invitation"
	case PlayerConfig:
		return "Config"
	case PlayerGame:
		return "Game"
	case PlayerQuit:
		return "Quit"
	}
	return fmt.Sprintf("PlayerState(%d)", int(s))
}

// DeckType diz como interpretar o DeckData escolhido na preparação.
type DeckType int

const (
	DeckNone DeckType = iota
	DeckRandom
	DeckString
	DeckCardIDs
)

func (t DeckType) String() string {
	switch t {
	case DeckNone:
		return "None"
	case DeckRandom:
		return "Random"
	case DeckString:
		return "DeckString"
	case DeckCardIDs:
		return "CardIds"
	}
	return fmt.Sprintf("DeckType(%d)", int(t))
}

// GameType do pedido de fila. Só existe o modo Normal por enquanto.
type GameType int

const (
	GameTypeNormal GameType = iota
)

func (t GameType) String() string {
	if t == GameTypeNormal {
		return "Normal"
	}
	return fmt.Sprintf("GameType(%d)", int(t))
}

// UserInfo é a visão pública de uma conta registrada, usada nas respostas de stats
// e no aviso de início de partida.
type UserInfo struct {
	ID          int         `json:"id"`
	AccountName string      `json:"accountName"`
	UserState   UserState   `json:"userState"`
	GameID      int         `json:"gameId"`
	DeckType    DeckType    `json:"deckType"`
	DeckData    string      `json:"deckData"`
	PlayerState PlayerState `json:"playerState"`
}

// --- Payloads aninhados de primeiro nível ---

// Response é o payload dos envelopes MessageResponse.
// Data continua em JSON bruto até a sub-tag ser conhecida.
type Response struct {
	State RequestState    `json:"state"`
	Type  ResponseType    `json:"responseType"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// GameRequest é o payload dos envelopes MessageGameRequest.
type GameRequest struct {
	Type GameRequestType `json:"requestType"`
	Data json.RawMessage `json:"data,omitempty"`
}

// GameResponse é o payload dos envelopes MessageGameResponse.
type GameResponse struct {
	State RequestState     `json:"state"`
	Type  GameResponseType `json:"responseType"`
	Data  json.RawMessage  `json:"data,omitempty"`
}

// --- Payloads folha (cliente -> servidor) ---

type HandShakeRequest struct {
	AccountName string `json:"accountName"`
}

type StatsRequest struct{}

type QueueRequest struct {
	GameType GameType `json:"gameType"`
}

// --- Payloads folha (servidor -> cliente) ---

type HandShakeResponse struct {
	ID    int    `json:"id"`
	Token string `json:"token"`
}

type StatsResponse struct {
	Users []UserInfo `json:"users"`
}

type QueueResponse struct {
	QueueSize int `json:"queueSize"`
}

type GameInvitation struct {
	GameID   int `json:"gameId"`
	PlayerID int `json:"playerId"`
}

type GamePreparation struct{}

type GameStart struct {
	Player1 UserInfo `json:"player1"`
	Player2 UserInfo `json:"player2"`
}

// PowerHistory carrega um lote ORDENADO de eventos do motor. O lote inteiro vai
// numa única mensagem para preservar a ordem de emissão.
type PowerHistory struct {
	PlayerID int                   `json:"playerId"`
	Entries  []engine.HistoryEntry `json:"entries"`
}

type PowerAllOptions struct {
	PlayerID int                  `json:"playerId"`
	Index    int                  `json:"optionIndex"`
	Options  []engine.PowerOption `json:"options"`
}

type GameStopNotice struct {
	Play1State engine.PlayState `json:"play1State"`
	Play2State engine.PlayState `json:"play2State"`
}

// --- Respostas de jogo (cliente -> servidor) ---

type InvitationReply struct{}

type PreparationReply struct {
	DeckType DeckType `json:"deckType"`
	DeckData string   `json:"deckData"`
}

// PowerOptionReply ecoa de volta o descritor exato da opção escolhida (não um
// índice), para não dessincronizar se o conjunto do servidor já foi substituído.
type PowerOptionReply struct {
	Option    engine.PowerOption `json:"option"`
	Target    int                `json:"target"`
	Position  int                `json:"position"`
	SubOption int                `json:"subOption"`
}

type GameStopReply struct {
	PlayerID int `json:"playerId"`
}
