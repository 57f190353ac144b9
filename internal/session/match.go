package session

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"lareira/internal/engine"
	"lareira/internal/events"
	"lareira/internal/protocol"
)

// Match é o orquestrador de uma partida entre duas contas: convite, preparação,
// loop de turnos e encerramento, fazendo a ponte entre os envelopes do fio e o
// motor de regras.
//
// As respostas dos dois jogadores chegam por callbacks de conexões diferentes,
// possivelmente ao mesmo tempo. Um único mutex serializa todas as transições:
// duas preparações quase simultâneas, um start duplicado ou uma resposta
// correndo contra o reaper nunca corrompem a criação do punho do motor.
type Match struct {
	id    int
	token string

	player1 *UserSession
	player2 *UserSession

	registry *Registry
	factory  engine.Factory
	events   *events.Publisher
	log      *zap.Logger

	// Pausa entre o aviso de GameStart e a criação da partida no motor.
	settle time.Duration

	mu           sync.Mutex
	rng          *rand.Rand
	game         engine.Game
	options      [2][]engine.PowerOption
	optionIndex  int
	stopped      bool
	lastActivity time.Time
}

func newMatch(id int, p1, p2 *UserSession, reg *Registry, factory engine.Factory, pub *events.Publisher, settle time.Duration, rng *rand.Rand, log *zap.Logger) *Match {
	return &Match{
		id:           id,
		token:        fmt.Sprintf("matchgame%d", id),
		player1:      p1,
		player2:      p2,
		registry:     reg,
		factory:      factory,
		events:       pub,
		settle:       settle,
		rng:          rng,
		log:          log.With(zap.Int("gameId", id)),
		lastActivity: time.Now(),
	}
}

// GameID devolve o id único desta partida.
func (m *Match) GameID() int { return m.id }

// Players devolve as duas contas da partida. A sessão guarda referências não
// proprietárias: o registro continua dono do ciclo de vida delas.
func (m *Match) Players() (*UserSession, *UserSession) { return m.player1, m.player2 }

// Finished informa se os dois jogadores chegaram ao estado terminal.
func (m *Match) Finished() bool {
	return m.player1.PlayerState() == protocol.PlayerQuit &&
		m.player2.PlayerState() == protocol.PlayerQuit
}

// IdleSince devolve o instante da última atividade, para o reaper de liveness.
func (m *Match) IdleSince() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivity
}

func (m *Match) touchLocked() { m.lastActivity = time.Now() }

// Initialize manda o convite para os dois jogadores.
func (m *Match) Initialize() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.player1.SetGameID(m.id)
	m.player1.SetPlayerState(protocol.PlayerInvitation)
	m.player1.Send(protocol.ServerGameInvitation(m.token, m.id, 1))

	m.player2.SetGameID(m.id)
	m.player2.SetPlayerState(protocol.PlayerInvitation)
	m.player2.Send(protocol.ServerGameInvitation(m.token, m.id, 2))

	m.touchLocked()
	m.log.Info("invitations sent",
		zap.String("player1", m.player1.AccountName()),
		zap.String("player2", m.player2.AccountName()))
}

func (m *Match) userByID(id int) *UserSession {
	switch id {
	case m.player1.ID():
		return m.player1
	case m.player2.ID():
		return m.player2
	}
	return nil
}

func (m *Match) playerID(u *UserSession) int {
	if u == m.player1 {
		return 1
	}
	return 2
}

// HandleResponse processa uma GameResponse vinda de um dos jogadores. Resposta
// de um id desconhecido, ou carregando Fail, é violação de protocolo: a sessão
// para imediatamente em vez de continuar.
func (m *Match) HandleResponse(userID int, resp protocol.GameResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.userByID(userID)
	if u == nil || resp.State != protocol.StateSuccess {
		m.log.Warn("protocol violation, stopping match",
			zap.Int("userId", userID),
			zap.Stringer("state", resp.State),
			zap.Stringer("responseType", resp.Type))
		m.stopLocked()
		return
	}

	m.log.Info("game response",
		zap.String("account", u.AccountName()),
		zap.Stringer("responseType", resp.Type))

	// Depois do stop só o ack de GameStop ainda interessa.
	if m.stopped && resp.Type != protocol.GameResponseGameStop {
		m.log.Debug("response after stop ignored", zap.Stringer("responseType", resp.Type))
		return
	}
	m.touchLocked()

	switch resp.Type {
	case protocol.GameResponseInvitation:
		m.handleInvitationLocked(u)

	case protocol.GameResponsePreparation:
		m.handlePreparationLocked(u, resp)

	case protocol.GameResponsePowerOption:
		m.handlePowerOptionLocked(u, resp)

	case protocol.GameResponseGameStop:
		m.handleGameStopLocked(resp)

	default:
		// Sub-tipo desconhecido: loga e ignora, nunca fatal.
		m.log.Warn("unknown game response kind dropped", zap.Int("kind", int(resp.Type)))
	}
}

func (m *Match) handleInvitationLocked(u *UserSession) {
	m.registry.SetUserState(u, protocol.UserPrepared)
	u.SetPlayerState(protocol.PlayerConfig)
	u.Send(protocol.ServerGamePreparation(m.token, m.id, m.playerID(u)))
}

func (m *Match) handlePreparationLocked(u *UserSession, resp protocol.GameResponse) {
	var prep protocol.PreparationReply
	if err := protocol.Unmarshal(resp.Data, &prep); err != nil {
		m.log.Warn("malformed preparation reply", zap.Error(err))
		m.stopLocked()
		return
	}

	u.SetDeck(prep.DeckType, prep.DeckData)
	m.registry.SetUserState(u, protocol.UserInGame)

	if m.player1.UserState() != protocol.UserInGame || m.player2.UserState() != protocol.UserInGame {
		return
	}

	// Os dois terminaram a preparação: avisa o início e cria a partida no motor
	// depois de um respiro, para os clientes assentarem o estado.
	info1, info2 := m.player1.Info(), m.player2.Info()
	start := protocol.ServerGameStart(m.token, m.id, publicInfo(info1), publicInfo(info2))
	m.player1.Send(start)
	m.player2.Send(start)
	m.player1.SetPlayerState(protocol.PlayerGame)
	m.player2.SetPlayerState(protocol.PlayerGame)

	time.AfterFunc(m.settle, m.Start)
}

// publicInfo reduz a entrada à identidade pública que vai no GameStart.
func publicInfo(info protocol.UserInfo) protocol.UserInfo {
	return protocol.UserInfo{ID: info.ID, AccountName: info.AccountName, GameID: info.GameID}
}

// Start cria a partida no motor e retransmite o histórico e as opções iniciais.
// Idempotente: se o punho do motor já existe (start duplicado, preparação
// respondida duas vezes), não faz nada.
func (m *Match) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startLocked()
}

func (m *Match) startLocked() {
	if m.game != nil || m.stopped {
		return
	}

	cfg := engine.Config{
		Format:       engine.FormatStandard,
		Player1Class: engine.HeroClass(m.rng.Intn(engine.NumHeroClasses)),
		Player2Class: engine.HeroClass(m.rng.Intn(engine.NumHeroClasses)),
		SkipMulligan: true,
		Shuffle:      true,
		FillDecks:    true,
		History:      true,
		Seed:         m.rng.Int63(),
	}

	game, err := m.factory(cfg)
	if err != nil {
		m.log.Error("engine game creation failed", zap.Error(err))
		m.stopLocked()
		return
	}
	if err := game.Start(); err != nil {
		m.log.Error("engine game start failed", zap.Error(err))
		m.stopLocked()
		return
	}
	m.game = game
	m.touchLocked()
	m.log.Info("engine game created")

	m.relayHistoryLocked()
	m.sendOptionsLocked()
}

// relayHistoryLocked drena o histórico do motor e manda o lote inteiro, na ordem
// de emissão, numa única mensagem por jogador. O motor é a única fonte de ordem.
func (m *Match) relayHistoryLocked() {
	entries := m.game.History()
	if len(entries) == 0 {
		return
	}
	m.player1.Send(protocol.ServerGamePowerHistory(m.token, m.id, 1, entries))
	m.player2.Send(protocol.ServerGamePowerHistory(m.token, m.id, 2, entries))
}

// sendOptionsLocked recomputa e retransmite o conjunto de opções legais de cada
// jogador. Todo envio carrega a lista completa.
func (m *Match) sendOptionsLocked() {
	m.optionIndex++

	opts1 := m.game.Options(1)
	m.options[0] = opts1
	m.player1.Send(protocol.ServerGamePowerAllOptions(m.token, m.id, 1, m.optionIndex, opts1))

	opts2 := m.game.Options(2)
	m.options[1] = opts2
	m.player2.Send(protocol.ServerGamePowerAllOptions(m.token, m.id, 2, m.optionIndex, opts2))
}

func (m *Match) handlePowerOptionLocked(u *UserSession, resp protocol.GameResponse) {
	var reply protocol.PowerOptionReply
	if err := protocol.Unmarshal(resp.Data, &reply); err != nil {
		m.log.Warn("malformed power option reply", zap.Error(err))
		m.stopLocked()
		return
	}
	if m.game == nil {
		m.log.Warn("power option before engine game exists")
		m.stopLocked()
		return
	}

	player := 1
	if u == m.player2 {
		player = 2
	}
	if !m.issuedOptionLocked(player, reply.Option) {
		// Eco que não bate com o último conjunto emitido: provavelmente uma
		// resposta atrasada a um conjunto já substituído. Descarta sem punir.
		m.log.Warn("echoed option not in the issued set",
			zap.Int("player", player),
			zap.Stringer("optionType", reply.Option.Type))
		return
	}

	action, ok := m.mapOptionLocked(reply)
	if !ok {
		// Pass: nenhuma ação é submetida. As opções do jogador que passou são
		// renovadas quando o oponente agir; reenviar aqui viraria um laço
		// quente com clientes automáticos.
		return
	}

	if err := m.game.Submit(action); err != nil {
		// Submeter numa partida já encerrada é bug da nossa máquina de
		// estados, não um problema do cliente. Grita alto.
		m.log.Error("engine submit failed", zap.Stringer("action", action.Type), zap.Error(err))
		m.stopLocked()
		return
	}

	m.relayHistoryLocked()

	if m.game.State() == engine.StateRunning {
		// Cada ação muda turno/legalidade: os dois lados recebem conjuntos
		// frescos.
		m.sendOptionsLocked()
		return
	}
	m.stopLocked()
}

// issuedOptionLocked confere se o descritor ecoado pertence ao último conjunto
// emitido para aquele jogador, casando tipo e entidade principal.
func (m *Match) issuedOptionLocked(player int, opt engine.PowerOption) bool {
	for _, issued := range m.options[player-1] {
		if issued.Type != opt.Type {
			continue
		}
		if (issued.MainOption == nil) != (opt.MainOption == nil) {
			continue
		}
		if issued.MainOption == nil || issued.MainOption.EntityID == opt.MainOption.EntityID {
			return true
		}
	}
	return false
}

// mapOptionLocked traduz a opção escolhida (mais alvo/posição/sub-escolha) para
// a chamada concreta do motor. Esta tabela é o único conhecimento de domínio que
// a camada de sessão carrega: ela decide qual campo do fio preenche qual chamada,
// não regras de carta.
func (m *Match) mapOptionLocked(reply protocol.PowerOptionReply) (engine.Action, bool) {
	opt := reply.Option

	switch opt.Type {
	case engine.OptionEndTurn:
		// Fim de turno é incondicional: alvo, posição e sub-escolha são
		// ignorados de propósito.
		return engine.Action{Type: engine.ActionEndTurn}, true

	case engine.OptionPass:
		return engine.Action{}, false

	case engine.OptionPower:
		if opt.MainOption == nil {
			m.log.Warn("power option without main option dropped")
			return engine.Action{}, false
		}
		source, found := m.game.Entity(opt.MainOption.EntityID)
		if !found {
			m.log.Warn("power option for unknown entity dropped", zap.Int("entityId", opt.MainOption.EntityID))
			return engine.Action{}, false
		}

		if source.InPlay {
			return engine.Action{Type: engine.ActionMinionAttack, EntityID: source.ID, TargetID: reply.Target}, true
		}

		switch source.Kind {
		case engine.CardHero:
			if reply.Target > 0 {
				return engine.Action{Type: engine.ActionHeroAttack, EntityID: source.ID, TargetID: reply.Target}, true
			}
			return engine.Action{Type: engine.ActionPlayCard, EntityID: source.ID}, true

		case engine.CardHeroPower:
			return engine.Action{Type: engine.ActionHeroPower, EntityID: source.ID, TargetID: reply.Target}, true

		default:
			return engine.Action{
				Type:      engine.ActionPlayCard,
				EntityID:  source.ID,
				TargetID:  reply.Target,
				Position:  reply.Position,
				SubOption: reply.SubOption,
			}, true
		}
	}

	m.log.Warn("unknown option kind dropped", zap.Int("kind", int(opt.Type)))
	return engine.Action{}, false
}

func (m *Match) handleGameStopLocked(resp protocol.GameResponse) {
	var stop protocol.GameStopReply
	if err := protocol.Unmarshal(resp.Data, &stop); err != nil {
		m.log.Warn("malformed game stop reply", zap.Error(err))
		m.stopLocked()
		return
	}

	switch stop.PlayerID {
	case 1:
		m.player1.SetPlayerState(protocol.PlayerQuit)
	case 2:
		m.player2.SetPlayerState(protocol.PlayerQuit)
	default:
		m.log.Warn("game stop for unknown player", zap.Int("playerId", stop.PlayerID))
		m.stopLocked()
	}
}

// Stop encerra a partida: manda o GameStop com os estados terminais para os dois
// jogadores e publica o resultado. Idempotente.
func (m *Match) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Match) stopLocked() {
	if m.stopped {
		return
	}
	m.stopped = true

	play1, play2 := engine.PlayStateInvalid, engine.PlayStateInvalid
	if m.game != nil {
		play1 = m.game.PlayState(1)
		play2 = m.game.PlayState(2)
	}

	notice := protocol.ServerGameStop(m.token, m.id, play1, play2)
	m.player1.Send(notice)
	m.player2.Send(notice)
	m.touchLocked()

	m.log.Info("match stopped",
		zap.String("player1", m.player1.AccountName()),
		zap.Stringer("play1State", play1),
		zap.String("player2", m.player2.AccountName()),
		zap.Stringer("play2State", play2))

	m.events.MatchResult(events.MatchResultEvent{
		GameID:     m.id,
		Account1:   m.player1.AccountName(),
		Account2:   m.player2.AccountName(),
		Play1State: play1.String(),
		Play2State: play2.String(),
	})
}

// Stopped informa se o encerramento já foi disparado.
func (m *Match) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}
