package session

import (
	"sync"

	"lareira/internal/protocol"
)

// Conn é o que a camada de sessão precisa de uma conexão: um envio que não
// bloqueia. O *network.Client satisfaz; os testes usam conexões falsas.
type Conn interface {
	Send(pkt protocol.Packet)
}

// UserSession é a entrada do registro para uma conta autenticada: identidade,
// token emitido, estados e a conexão viva. Criada no handshake, removida na
// desconexão.
//
// Os campos mutáveis podem ser lidos pelo scheduler enquanto callbacks de
// conexão os escrevem, então ficam atrás de um mutex próprio. O registro
// continua dono exclusivo do ciclo de vida da entrada.
type UserSession struct {
	id          int
	accountName string
	token       string
	conn        Conn

	mu          sync.Mutex
	userState   protocol.UserState
	queuedSeq   uint64
	gameID      int
	deckType    protocol.DeckType
	deckData    string
	playerState protocol.PlayerState
}

func newUserSession(id int, accountName, token string, conn Conn) *UserSession {
	return &UserSession{
		id:          id,
		accountName: accountName,
		token:       token,
		conn:        conn,
		userState:   protocol.UserNone,
		gameID:      protocol.NoGame,
		deckType:    protocol.DeckNone,
		playerState: protocol.PlayerNone,
	}
}

func (u *UserSession) ID() int             { return u.id }
func (u *UserSession) AccountName() string { return u.accountName }
func (u *UserSession) Token() string       { return u.token }

// Send repassa um envelope para a conexão desta conta.
func (u *UserSession) Send(pkt protocol.Packet) { u.conn.Send(pkt) }

func (u *UserSession) UserState() protocol.UserState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.userState
}

// setUserState troca o estado e devolve o anterior. Uso interno do registro,
// que é quem publica o evento de transição. O seq marca a posição de chegada na
// fila, para o pareamento FIFO do scheduler.
func (u *UserSession) setUserState(s protocol.UserState, seq uint64) protocol.UserState {
	u.mu.Lock()
	defer u.mu.Unlock()
	old := u.userState
	u.userState = s
	if s == protocol.UserQueued {
		u.queuedSeq = seq
	}
	return old
}

func (u *UserSession) queuedOrder() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.queuedSeq
}

func (u *UserSession) GameID() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.gameID
}

func (u *UserSession) SetGameID(id int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.gameID = id
}

func (u *UserSession) PlayerState() protocol.PlayerState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.playerState
}

func (u *UserSession) SetPlayerState(s protocol.PlayerState) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.playerState = s
}

func (u *UserSession) SetDeck(t protocol.DeckType, data string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deckType = t
	u.deckData = data
}

// Info tira uma foto consistente da entrada (sem leitura rasgada de um mesmo
// usuário; entradas diferentes podem mudar entre si).
func (u *UserSession) Info() protocol.UserInfo {
	u.mu.Lock()
	defer u.mu.Unlock()
	return protocol.UserInfo{
		ID:          u.id,
		AccountName: u.accountName,
		UserState:   u.userState,
		GameID:      u.gameID,
		DeckType:    u.deckType,
		DeckData:    u.deckData,
		PlayerState: u.playerState,
	}
}
