package protocol

import (
	"encoding/json"

	"lareira/internal/engine"
)

// Identidade que o servidor usa nos envelopes que ele mesmo origina.
const (
	ServerID    = 1
	ServerToken = "server"

	// MatchID é o id usado pelos envelopes originados por uma sessão de partida.
	MatchID = 2

	// NoGame é o GameID dos envelopes fora de qualquer partida.
	NoGame = -1
)

// Os builders abaixo montam todos os envelopes do catálogo, no mesmo espírito do
// pacote de mensagens do lobby: uma função por mensagem, sem estado.

func raw(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func build(id, gameID, playerID int, token string, t MessageType, payload any) Packet {
	return Packet{
		ID:          id,
		GameID:      gameID,
		PlayerID:    playerID,
		Token:       token,
		MessageType: t,
		Payload:     raw(payload),
	}
}

// --- Requisições do cliente ---

func ClientHandShake(id int, token, accountName string) Packet {
	return build(id, NoGame, NoGame, token, MessageHandShake, HandShakeRequest{AccountName: accountName})
}

func ClientStats(id int, token string) Packet {
	return build(id, NoGame, NoGame, token, MessageStats, StatsRequest{})
}

func ClientQueue(id int, token string, gameType GameType) Packet {
	return build(id, NoGame, NoGame, token, MessageQueue, QueueRequest{GameType: gameType})
}

// --- Respostas do servidor ---

func ServerHandShakeResponse(state RequestState, userID int, userToken string) Packet {
	resp := Response{State: state, Type: ResponseHandShake}
	if state == StateSuccess {
		resp.Data = raw(HandShakeResponse{ID: userID, Token: userToken})
	}
	return build(ServerID, NoGame, NoGame, ServerToken, MessageResponse, resp)
}

func ServerStatsResponse(state RequestState, users []UserInfo) Packet {
	resp := Response{State: state, Type: ResponseStats, Data: raw(StatsResponse{Users: users})}
	return build(ServerID, NoGame, NoGame, ServerToken, MessageResponse, resp)
}

func ServerQueueResponse(state RequestState, queueSize int) Packet {
	resp := Response{State: state, Type: ResponseQueue, Data: raw(QueueResponse{QueueSize: queueSize})}
	return build(ServerID, NoGame, NoGame, ServerToken, MessageResponse, resp)
}

// --- Requisições de partida (servidor -> cliente) ---

func serverGameRequest(token string, gameID, playerID int, t GameRequestType, data any) Packet {
	req := GameRequest{Type: t, Data: raw(data)}
	return build(MatchID, gameID, playerID, token, MessageGameRequest, req)
}

func ServerGameInvitation(token string, gameID, playerID int) Packet {
	return serverGameRequest(token, gameID, playerID, GameRequestInvitation, GameInvitation{GameID: gameID, PlayerID: playerID})
}

func ServerGamePreparation(token string, gameID, playerID int) Packet {
	return serverGameRequest(token, gameID, playerID, GameRequestPreparation, GamePreparation{})
}

func ServerGameStart(token string, gameID int, player1, player2 UserInfo) Packet {
	return serverGameRequest(token, gameID, NoGame, GameRequestGameStart, GameStart{Player1: player1, Player2: player2})
}

func ServerGamePowerHistory(token string, gameID, playerID int, entries []engine.HistoryEntry) Packet {
	return serverGameRequest(token, gameID, playerID, GameRequestPowerHistory, PowerHistory{PlayerID: playerID, Entries: entries})
}

func ServerGamePowerAllOptions(token string, gameID, playerID, index int, options []engine.PowerOption) Packet {
	return serverGameRequest(token, gameID, playerID, GameRequestPowerAllOptions, PowerAllOptions{
		PlayerID: playerID,
		Index:    index,
		Options:  options,
	})
}

func ServerGameStop(token string, gameID int, play1, play2 engine.PlayState) Packet {
	return serverGameRequest(token, gameID, NoGame, GameRequestGameStop, GameStopNotice{Play1State: play1, Play2State: play2})
}

// --- Respostas de partida (cliente -> servidor) ---

func clientGameResponse(id int, token string, gameID int, state RequestState, t GameResponseType, data any) Packet {
	resp := GameResponse{State: state, Type: t, Data: raw(data)}
	return build(id, gameID, NoGame, token, MessageGameResponse, resp)
}

func ClientInvitationReply(id int, token string, gameID int, state RequestState) Packet {
	return clientGameResponse(id, token, gameID, state, GameResponseInvitation, InvitationReply{})
}

func ClientPreparationReply(id int, token string, gameID int, deckType DeckType, deckData string, state RequestState) Packet {
	return clientGameResponse(id, token, gameID, state, GameResponsePreparation, PreparationReply{DeckType: deckType, DeckData: deckData})
}

func ClientPowerOptionReply(id int, token string, gameID int, option engine.PowerOption, target, position, subOption int) Packet {
	return clientGameResponse(id, token, gameID, StateSuccess, GameResponsePowerOption, PowerOptionReply{
		Option:    option,
		Target:    target,
		Position:  position,
		SubOption: subOption,
	})
}

func ClientGameStopReply(id int, token string, gameID, playerID int, state RequestState) Packet {
	return clientGameResponse(id, token, gameID, state, GameResponseGameStop, GameStopReply{PlayerID: playerID})
}
