package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"lareira/internal/engine"
	"lareira/internal/network"
	"lareira/internal/protocol"
)

// State é o estado local do cliente. Ele avança pelas respostas do servidor e
// guarda as operações de saída: pedir fila sem estar registrado, por exemplo, é
// recusado aqui mesmo, sem gastar rede.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateHandShake
	StateRegistered
	StateQueued
	StateInvited
	StatePrepared
	StateInGame
)

var stateNames = map[State]string{
	StateDisconnected: "Disconnected",
	StateConnected:    "Connected",
	StateHandShake:    "HandShake",
	StateRegistered:   "Registered",
	StateQueued:       "Queued",
	StateInvited:      "Invited",
	StatePrepared:     "Prepared",
	StateInGame:       "InGame",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrBadState indica uma operação chamada fora do estado que a permite.
var ErrBadState = errors.New("operation not allowed in current state")

// noPendingRequest marca que nenhum pedido do servidor espera aceite manual.
// Não pode ser o zero: GameRequestInvitation é zero no fio.
const noPendingRequest protocol.GameRequestType = -1

// OptionPicker escolhe uma opção do conjunto recebido e devolve alvo, posição e
// sub-escolha junto. Devolver ok=false segura a resposta para escolha manual.
type OptionPicker func(options []engine.PowerOption) (choice protocol.PowerOptionReply, ok bool)

// Options parametriza a construção de um GameClient.
type Options struct {
	Log  *zap.Logger
	Deck DeckConfig
	// Picker automatiza o loop de turnos. Nil deixa as opções pendentes para
	// SubmitOption.
	Picker OptionPicker
	// OnStateChange é chamado (na goroutine de leitura, com o lock interno
	// preso) a cada transição. Não chame métodos do cliente direto daqui;
	// dispare uma goroutine.
	OnStateChange func(old, new State)
}

// GameClient é a máquina de estados do lado do cliente: handshake, fila,
// convite, preparação e o loop de turnos de uma partida.
type GameClient struct {
	log    *zap.Logger
	deck   DeckConfig
	picker OptionPicker
	notify func(old, new State)

	mu          sync.Mutex
	peer        *network.Peer
	send        func(protocol.Packet)
	state       State
	accountName string
	id          int
	token       string
	gameID      int
	playerID    int
	pending     []engine.PowerOption
	awaiting    protocol.GameRequestType
	users       []protocol.UserInfo
	queueSize   int
	stats       map[engine.PlayState]int
}

func New(opts Options) *GameClient {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &GameClient{
		log:      log,
		deck:     opts.Deck,
		picker:   opts.Picker,
		notify:   opts.OnStateChange,
		state:    StateDisconnected,
		gameID:   protocol.NoGame,
		awaiting: noPendingRequest,
		stats:    make(map[engine.PlayState]int),
	}
}

func (c *GameClient) setStateLocked(s State) {
	old := c.state
	if old == s {
		return
	}
	c.state = s
	c.log.Debug("client state change", zap.Stringer("from", old), zap.Stringer("to", s))
	if c.notify != nil {
		c.notify(old, s)
	}
}

// State devolve o estado local atual.
func (c *GameClient) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ID devolve o id de conta recebido no handshake.
func (c *GameClient) ID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Statistics devolve uma cópia do placar acumulado de estados terminais.
func (c *GameClient) Statistics() map[engine.PlayState]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[engine.PlayState]int, len(c.stats))
	for k, v := range c.stats {
		out[k] = v
	}
	return out
}

// Users devolve o último retrato de contas recebido numa resposta de stats.
func (c *GameClient) Users() []protocol.UserInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.UserInfo, len(c.users))
	copy(out, c.users)
	return out
}

// Connect abre a conexão WebSocket com o servidor.
func (c *GameClient) Connect(addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDisconnected {
		return fmt.Errorf("connect: %w (state %s)", ErrBadState, c.state)
	}

	peer, err := network.Dial(addr, c.handlePacket, c.onDisconnect, c.log)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	c.peer = peer
	c.send = peer.Send
	c.setStateLocked(StateConnected)
	return nil
}

// Disconnect fecha a conexão. Idempotente.
func (c *GameClient) Disconnect() {
	c.mu.Lock()
	peer := c.peer
	c.mu.Unlock()
	if peer != nil {
		peer.Close()
	}
}

func (c *GameClient) onDisconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peer = nil
	c.awaiting = noPendingRequest
	c.setStateLocked(StateDisconnected)
}

// HandShake apresenta a conta ao servidor. A identidade (id e token) chega na
// resposta.
func (c *GameClient) HandShake(accountName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return fmt.Errorf("handshake: %w (state %s)", ErrBadState, c.state)
	}
	c.accountName = accountName
	c.setStateLocked(StateHandShake)
	c.send(protocol.ClientHandShake(c.id, c.token, accountName))
	return nil
}

// Queue pede entrada na fila de pareamento.
func (c *GameClient) Queue() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRegistered {
		return fmt.Errorf("queue: %w (state %s)", ErrBadState, c.state)
	}
	c.send(protocol.ClientQueue(c.id, c.token, protocol.GameTypeNormal))
	return nil
}

// RequestStats pede o retrato de contas do servidor. Vale em qualquer estado a
// partir do registro.
func (c *GameClient) RequestStats() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state < StateRegistered {
		return fmt.Errorf("stats: %w (state %s)", ErrBadState, c.state)
	}
	c.send(protocol.ClientStats(c.id, c.token))
	return nil
}

// PollStats pede stats periodicamente até o contexto ser cancelado.
func (c *GameClient) PollStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.RequestStats(); err != nil {
				c.log.Debug("stats poll skipped", zap.Error(err))
			}
		}
	}
}

// AcceptInvitation confirma um convite recebido. Com um Picker configurado o
// convite já foi aceito na chegada e esta chamada é recusada.
func (c *GameClient) AcceptInvitation() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.awaiting != protocol.GameRequestInvitation {
		return fmt.Errorf("accept invitation: %w (state %s)", ErrBadState, c.state)
	}
	c.awaiting = noPendingRequest
	c.acceptInvitationLocked()
	return nil
}

// AcceptPreparation confirma a preparação enviando o baralho configurado.
func (c *GameClient) AcceptPreparation() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.awaiting != protocol.GameRequestPreparation {
		return fmt.Errorf("accept preparation: %w (state %s)", ErrBadState, c.state)
	}
	c.awaiting = noPendingRequest
	c.acceptPreparationLocked()
	return nil
}

func (c *GameClient) acceptInvitationLocked() {
	c.send(protocol.ClientInvitationReply(c.id, c.token, c.gameID, protocol.StateSuccess))
}

func (c *GameClient) acceptPreparationLocked() {
	c.send(protocol.ClientPreparationReply(c.id, c.token, c.gameID,
		c.deck.Type(), c.deck.Data, protocol.StateSuccess))
}

// PendingOptions devolve o último conjunto de opções ainda sem resposta.
func (c *GameClient) PendingOptions() []engine.PowerOption {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]engine.PowerOption, len(c.pending))
	copy(out, c.pending)
	return out
}

// SubmitOption responde o conjunto de opções pendente com a escolha dada.
func (c *GameClient) SubmitOption(choice protocol.PowerOptionReply) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInGame {
		return fmt.Errorf("submit option: %w (state %s)", ErrBadState, c.state)
	}
	if len(c.pending) == 0 {
		return errors.New("submit option: no options pending")
	}
	c.sendOptionLocked(choice)
	return nil
}

func (c *GameClient) sendOptionLocked(choice protocol.PowerOptionReply) {
	c.pending = nil
	c.send(protocol.ClientPowerOptionReply(c.id, c.token, c.gameID,
		choice.Option, choice.Target, choice.Position, choice.SubOption))
}

// handlePacket roda na goroutine de leitura da conexão.
func (c *GameClient) handlePacket(pkt protocol.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch pkt.MessageType {
	case protocol.MessageResponse:
		var resp protocol.Response
		if err := protocol.Unmarshal(pkt.Payload, &resp); err != nil {
			c.log.Warn("malformed response dropped", zap.Error(err))
			return
		}
		c.handleResponseLocked(resp)

	case protocol.MessageGameRequest:
		var req protocol.GameRequest
		if err := protocol.Unmarshal(pkt.Payload, &req); err != nil {
			c.log.Warn("malformed game request dropped", zap.Error(err))
			return
		}
		c.handleGameRequestLocked(pkt, req)

	default:
		c.log.Warn("unknown message type dropped", zap.Int("messageType", int(pkt.MessageType)))
	}
}

func (c *GameClient) handleResponseLocked(resp protocol.Response) {
	switch resp.Type {
	case protocol.ResponseHandShake:
		if c.state != StateHandShake {
			c.log.Warn("handshake response out of order ignored", zap.Stringer("state", c.state))
			return
		}
		if resp.State != protocol.StateSuccess {
			c.log.Warn("handshake refused by server")
			c.setStateLocked(StateConnected)
			return
		}
		var hs protocol.HandShakeResponse
		if err := protocol.Unmarshal(resp.Data, &hs); err != nil {
			c.log.Warn("malformed handshake response", zap.Error(err))
			c.setStateLocked(StateConnected)
			return
		}
		c.id = hs.ID
		c.token = hs.Token
		c.log.Info("registered", zap.String("account", c.accountName), zap.Int("userId", c.id))
		c.setStateLocked(StateRegistered)

	case protocol.ResponseQueue:
		if resp.State != protocol.StateSuccess {
			c.log.Warn("queue refused by server")
			return
		}
		var q protocol.QueueResponse
		if err := protocol.Unmarshal(resp.Data, &q); err != nil {
			c.log.Warn("malformed queue response", zap.Error(err))
			return
		}
		c.queueSize = q.QueueSize
		c.log.Info("queued", zap.Int("queueSize", q.QueueSize))
		if c.state == StateRegistered {
			c.setStateLocked(StateQueued)
		}

	case protocol.ResponseStats:
		if resp.State != protocol.StateSuccess {
			return
		}
		var st protocol.StatsResponse
		if err := protocol.Unmarshal(resp.Data, &st); err != nil {
			c.log.Warn("malformed stats response", zap.Error(err))
			return
		}
		c.users = st.Users
		c.log.Info("server stats", zap.Int("users", len(st.Users)))

	default:
		c.log.Warn("unknown response kind dropped", zap.Int("kind", int(resp.Type)))
	}
}

func (c *GameClient) handleGameRequestLocked(pkt protocol.Packet, req protocol.GameRequest) {
	switch req.Type {
	case protocol.GameRequestInvitation:
		var inv protocol.GameInvitation
		if err := protocol.Unmarshal(req.Data, &inv); err != nil {
			c.log.Warn("malformed invitation", zap.Error(err))
			return
		}
		// A identidade da partida fica registrada antes do guard: a recusa
		// precisa carregar o gameId certo para o servidor encerrar a sessão.
		c.gameID = inv.GameID
		c.playerID = inv.PlayerID
		if c.state != StateQueued {
			c.log.Warn("invitation out of order refused", zap.Stringer("state", c.state))
			c.send(protocol.ClientInvitationReply(c.id, c.token, c.gameID, protocol.StateFail))
			return
		}
		c.setStateLocked(StateInvited)
		c.log.Info("invited", zap.Int("gameId", c.gameID), zap.Int("playerId", c.playerID))
		if c.picker != nil {
			c.acceptInvitationLocked()
		} else {
			c.awaiting = protocol.GameRequestInvitation
			c.log.Info("invitation waiting for manual accept")
		}

	case protocol.GameRequestPreparation:
		if c.state != StateInvited {
			c.log.Warn("preparation out of order refused", zap.Stringer("state", c.state))
			c.send(protocol.ClientPreparationReply(c.id, c.token, c.gameID,
				c.deck.Type(), c.deck.Data, protocol.StateFail))
			return
		}
		c.setStateLocked(StatePrepared)
		if c.picker != nil {
			c.acceptPreparationLocked()
		} else {
			c.awaiting = protocol.GameRequestPreparation
			c.log.Info("preparation waiting for manual accept")
		}

	case protocol.GameRequestGameStart:
		if c.state != StatePrepared {
			c.log.Warn("game start out of order ignored", zap.Stringer("state", c.state))
			return
		}
		var start protocol.GameStart
		if err := protocol.Unmarshal(req.Data, &start); err != nil {
			c.log.Warn("malformed game start", zap.Error(err))
			return
		}
		c.setStateLocked(StateInGame)
		c.log.Info("game started",
			zap.Int("gameId", c.gameID),
			zap.String("player1", start.Player1.AccountName),
			zap.String("player2", start.Player2.AccountName))

	case protocol.GameRequestPowerHistory:
		if c.state != StateInGame {
			return
		}
		var hist protocol.PowerHistory
		if err := protocol.Unmarshal(req.Data, &hist); err != nil {
			c.log.Warn("malformed power history", zap.Error(err))
			return
		}
		c.log.Debug("power history", zap.Int("entries", len(hist.Entries)))

	case protocol.GameRequestPowerAllOptions:
		if c.state != StateInGame {
			c.log.Warn("options out of order ignored", zap.Stringer("state", c.state))
			return
		}
		var opts protocol.PowerAllOptions
		if err := protocol.Unmarshal(req.Data, &opts); err != nil {
			c.log.Warn("malformed options", zap.Error(err))
			return
		}
		// Cada conjunto substitui o anterior por inteiro.
		c.pending = opts.Options
		c.log.Debug("options received",
			zap.Int("optionIndex", opts.Index),
			zap.Int("count", len(opts.Options)))
		if c.picker != nil {
			if choice, ok := c.picker(opts.Options); ok {
				c.sendOptionLocked(choice)
			}
		}

	case protocol.GameRequestGameStop:
		var stop protocol.GameStopNotice
		if err := protocol.Unmarshal(req.Data, &stop); err != nil {
			c.log.Warn("malformed game stop", zap.Error(err))
			return
		}
		mine := stop.Play1State
		if c.playerID == 2 {
			mine = stop.Play2State
		}
		c.stats[mine]++
		c.log.Info("game over",
			zap.Int("gameId", c.gameID),
			zap.Stringer("result", mine),
			zap.Stringer("play1State", stop.Play1State),
			zap.Stringer("play2State", stop.Play2State))
		c.send(protocol.ClientGameStopReply(c.id, c.token, c.gameID, c.playerID, protocol.StateSuccess))
		c.gameID = protocol.NoGame
		c.playerID = 0
		c.pending = nil
		c.awaiting = noPendingRequest
		c.setStateLocked(StateRegistered)

	default:
		c.log.Warn("unknown game request kind dropped", zap.Int("kind", int(req.Type)))
	}
}
