package session

import (
	"go.uber.org/zap"

	"lareira/internal/engine"
	"lareira/internal/events"
	"lareira/internal/network"
	"lareira/internal/protocol"
)

// Manager é o despachante do servidor: recebe os envelopes da camada de rede e
// os encaminha para o registro de contas ou para a partida dona do gameId.
//
// A rede entrega cada mensagem numa goroutine própria, então tudo aqui embaixo
// (registro, mesa de partidas, sessões) se protege sozinho.
type Manager struct {
	registry   *Registry
	table      *matchTable
	matchmaker *Matchmaker
	log        *zap.Logger
}

func NewManager(factory engine.Factory, pub *events.Publisher, opts MatchmakerOptions, log *zap.Logger) *Manager {
	registry := NewRegistry(log, pub)
	table := newMatchTable()
	return &Manager{
		registry:   registry,
		table:      table,
		matchmaker: NewMatchmaker(registry, table, factory, pub, opts, log),
		log:        log,
	}
}

// Registry expõe o registro de contas, para fins de inspeção.
func (s *Manager) Registry() *Registry { return s.registry }

// Matchmaker expõe o pareador para o processo principal rodar.
func (s *Manager) Matchmaker() *Matchmaker { return s.matchmaker }

func (s *Manager) OnConnect(c *network.Client) {
	s.log.Info("client connected", zap.String("connId", c.ID().String()))
}

func (s *Manager) OnDisconnect(c *network.Client) {
	s.log.Info("client disconnected", zap.String("connId", c.ID().String()))
	s.disconnect(c)
}

func (s *Manager) OnMessage(c *network.Client, pkt protocol.Packet) {
	s.dispatch(c, pkt)
}

// disconnect limpa a conta da conexão e, se ela estava numa partida, encerra a
// partida na hora: o oponente recebe o GameStop em vez de ficar esperando o
// timeout de inatividade.
func (s *Manager) disconnect(conn Conn) {
	u, ok := s.registry.Remove(conn)
	if !ok {
		return
	}

	if gameID := u.GameID(); gameID != protocol.NoGame {
		if m, found := s.table.lookup(gameID); found {
			s.log.Warn("player vanished mid match, stopping",
				zap.Int("gameId", gameID),
				zap.String("account", u.AccountName()))
			u.SetPlayerState(protocol.PlayerQuit)
			m.Stop()
		}
	}
}

func (s *Manager) dispatch(conn Conn, pkt protocol.Packet) {
	switch pkt.MessageType {
	case protocol.MessageHandShake:
		s.handleHandShake(conn, pkt)
	case protocol.MessageStats:
		s.handleStats(conn, pkt)
	case protocol.MessageQueue:
		s.handleQueue(conn, pkt)
	case protocol.MessageGameResponse:
		s.handleGameResponse(pkt)
	default:
		// Tipo desconhecido não derruba a conexão: loga e segue.
		s.log.Warn("unknown message type dropped", zap.Int("messageType", int(pkt.MessageType)))
	}
}

func (s *Manager) handleHandShake(conn Conn, pkt protocol.Packet) {
	var req protocol.HandShakeRequest
	if err := protocol.Unmarshal(pkt.Payload, &req); err != nil {
		s.log.Warn("malformed handshake dropped", zap.Error(err))
		return
	}

	u, err := s.registry.Register(req.AccountName, conn)
	if err != nil {
		s.log.Warn("handshake refused",
			zap.String("account", req.AccountName),
			zap.Error(err))
		conn.Send(protocol.ServerHandShakeResponse(protocol.StateFail, 0, ""))
		return
	}

	conn.Send(protocol.ServerHandShakeResponse(protocol.StateSuccess, u.ID(), u.Token()))
}

// authenticate resolve o token do envelope para a conta registrada. O id do
// envelope tem que bater com o dono do token.
func (s *Manager) authenticate(pkt protocol.Packet) (*UserSession, bool) {
	u, ok := s.registry.Lookup(pkt.Token)
	if !ok || u.ID() != pkt.ID {
		s.log.Warn("envelope with unknown credentials dropped", zap.Int("userId", pkt.ID))
		return nil, false
	}
	return u, true
}

func (s *Manager) handleStats(conn Conn, pkt protocol.Packet) {
	if _, ok := s.authenticate(pkt); !ok {
		conn.Send(protocol.ServerStatsResponse(protocol.StateFail, nil))
		return
	}
	conn.Send(protocol.ServerStatsResponse(protocol.StateSuccess, s.registry.Snapshot()))
}

// handleQueue enfileira a conta. Só quem está fora de fila e fora de partida
// pode entrar; qualquer outro estado recebe Fail sem efeito colateral.
func (s *Manager) handleQueue(conn Conn, pkt protocol.Packet) {
	u, ok := s.authenticate(pkt)
	if !ok {
		conn.Send(protocol.ServerQueueResponse(protocol.StateFail, 0))
		return
	}

	var req protocol.QueueRequest
	if err := protocol.Unmarshal(pkt.Payload, &req); err != nil {
		s.log.Warn("malformed queue request dropped", zap.Error(err))
		conn.Send(protocol.ServerQueueResponse(protocol.StateFail, 0))
		return
	}

	if u.UserState() != protocol.UserNone {
		s.log.Warn("queue refused",
			zap.String("account", u.AccountName()),
			zap.Stringer("userState", u.UserState()))
		conn.Send(protocol.ServerQueueResponse(protocol.StateFail, 0))
		return
	}

	s.registry.SetUserState(u, protocol.UserQueued)
	queueSize := len(s.registry.Queued())
	s.log.Info("account queued",
		zap.String("account", u.AccountName()),
		zap.Stringer("gameType", req.GameType),
		zap.Int("queueSize", queueSize))
	conn.Send(protocol.ServerQueueResponse(protocol.StateSuccess, queueSize))
}

// handleGameResponse roteia a resposta para a partida dona do gameId. Partida
// desconhecida (já colhida, ou id inventado) é logada e descartada.
func (s *Manager) handleGameResponse(pkt protocol.Packet) {
	if _, ok := s.authenticate(pkt); !ok {
		return
	}

	var resp protocol.GameResponse
	if err := protocol.Unmarshal(pkt.Payload, &resp); err != nil {
		s.log.Warn("malformed game response dropped", zap.Error(err))
		return
	}

	m, found := s.table.lookup(pkt.GameID)
	if !found {
		s.log.Warn("game response for unknown match dropped",
			zap.Int("gameId", pkt.GameID),
			zap.Int("userId", pkt.ID))
		return
	}
	m.HandleResponse(pkt.ID, resp)
}
