package session

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"lareira/internal/events"
	"lareira/internal/protocol"
)

// Os ids de conta começam aqui, como no índice original do servidor.
const firstUserID = 10000

var (
	// ErrAlreadyRegistered indica um handshake repetido da MESMA conexão.
	ErrAlreadyRegistered = errors.New("session: account already registered on this connection")
)

// Registry é o armazém concorrente das contas autenticadas, chaveado pelo token.
// Todo callback de conexão e o tick do matchmaking passam por aqui; as operações
// são protegidas por um único mutex de mapa, e o estado de cada entrada pelo
// mutex da própria entrada.
type Registry struct {
	log    *zap.Logger
	events *events.Publisher

	mu     sync.RWMutex
	users  map[string]*UserSession
	nextID int
	qseq   atomic.Uint64
}

func NewRegistry(log *zap.Logger, pub *events.Publisher) *Registry {
	return &Registry{
		log:    log,
		events: pub,
		users:  make(map[string]*UserSession),
		nextID: firstUserID,
	}
}

// deriveToken deriva o token de capacidade de forma determinística a partir de
// (conta, id): reproduzível, mas impraticável de adivinhar sem os dois.
func deriveToken(accountName string, id int) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s#%d", accountName, id)
	return fmt.Sprintf("%016x", h.Sum64())
}

// Register cria a entrada de uma conta nova. Falha se a mesma conta já está
// ligada à MESMA conexão (registro duplicado); uma conta existente chegando por
// uma conexão nova substitui a entrada antiga (reconexão).
func (r *Registry) Register(accountName string, conn Conn) (*UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.accountName != accountName {
			continue
		}
		if u.conn == conn {
			return nil, ErrAlreadyRegistered
		}
		// Conexão nova para a mesma conta: a entrada antiga sai, a nova entra.
		r.log.Warn("account re-registered from a new connection", zap.String("account", accountName), zap.Int("oldId", u.id))
		delete(r.users, u.token)
		break
	}

	id := r.nextID
	r.nextID++
	token := deriveToken(accountName, id)

	user := newUserSession(id, accountName, token, conn)
	r.users[token] = user

	r.log.Info("account registered", zap.String("account", accountName), zap.Int("id", id))
	return user, nil
}

// Lookup encontra uma conta pelo token.
func (r *Registry) Lookup(token string) (*UserSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[token]
	return u, ok
}

// ByConn encontra a conta dona de uma conexão.
func (r *Registry) ByConn(conn Conn) (*UserSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.conn == conn {
			return u, true
		}
	}
	return nil, false
}

// Remove tira do registro a conta ligada à conexão dada. Chamada no handler de
// desconexão: se a entrada já se foi, só avisa, nunca falha o handler.
func (r *Registry) Remove(conn Conn) (*UserSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, u := range r.users {
		if u.conn == conn {
			delete(r.users, token)
			r.log.Info("account unregistered", zap.String("account", u.accountName), zap.Int("id", u.id))
			return u, true
		}
	}
	r.log.Warn("disconnect for a connection with no registered account")
	return nil, false
}

// SetUserState faz a transição de estado de uma conta e publica o evento.
// A mutação é atômica em relação às leituras do scheduler.
func (r *Registry) SetUserState(u *UserSession, s protocol.UserState) {
	old := u.setUserState(s, r.qseq.Add(1))
	r.log.Debug("user state changed",
		zap.String("account", u.accountName),
		zap.Stringer("from", old),
		zap.Stringer("to", s))
	r.events.UserState(events.UserStateEvent{
		ID:          u.id,
		AccountName: u.accountName,
		From:        old.String(),
		To:          s.String(),
	})
}

// Snapshot devolve a visão pública de todas as contas, em ordem de registro
// (id crescente). Cada entrada é uma foto consistente; o conjunto não é
// congelado contra mutações de outras entradas.
func (r *Registry) Snapshot() []protocol.UserInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.UserInfo, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Queued devolve as contas na fila, na ordem em que entraram nela, para o
// pareamento FIFO do scheduler.
func (r *Registry) Queued() []*UserSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*UserSession, 0)
	for _, u := range r.users {
		if u.UserState() == protocol.UserQueued {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].queuedOrder() < out[j].queuedOrder() })
	return out
}

// Len devolve o número de contas registradas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
