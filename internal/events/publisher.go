// Package events publica eventos de ciclo de vida (mudança de estado de conta,
// resultado de partida) num barramento NATS, para quem quiser observar o servidor
// de fora: dashboards, métricas, outros serviços.
package events

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectUserState   = "lareira.users.state"
	SubjectMatchResult = "lareira.matches.result"
)

// UserStateEvent é emitido a cada transição de estado de uma conta no registro.
type UserStateEvent struct {
	ID          int    `json:"id"`
	AccountName string `json:"accountName"`
	From        string `json:"from"`
	To          string `json:"to"`
}

// MatchResultEvent é emitido quando uma sessão de partida termina.
type MatchResultEvent struct {
	GameID     int    `json:"gameId"`
	Account1   string `json:"account1"`
	Account2   string `json:"account2"`
	Play1State string `json:"play1State"`
	Play2State string `json:"play2State"`
}

// Publisher publica eventos no NATS. Um Publisher nulo é válido e não faz nada,
// para que o servidor rode sem barramento configurado.
type Publisher struct {
	nc  *nats.Conn
	log *zap.Logger
}

// Connect abre a conexão com o NATS e devolve um Publisher pronto.
func Connect(natsURL string, log *zap.Logger) (*Publisher, error) {
	nc, err := nats.Connect(natsURL, nats.Name("lareira-server"))
	if err != nil {
		return nil, err
	}
	log.Info("connected to NATS", zap.String("url", natsURL))
	return &Publisher{nc: nc, log: log}, nil
}

// Close fecha a conexão com o barramento.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Close()
}

func (p *Publisher) publish(subject string, v any) {
	if p == nil || p.nc == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		p.log.Error("event marshal failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	// Publicação é melhor esforço: um barramento fora do ar não pode travar a
	// camada de sessão.
	if err := p.nc.Publish(subject, data); err != nil {
		p.log.Warn("event publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

// UserState publica a transição de estado de uma conta.
func (p *Publisher) UserState(ev UserStateEvent) {
	p.publish(SubjectUserState, ev)
}

// MatchResult publica o desfecho de uma partida.
func (p *Publisher) MatchResult(ev MatchResultEvent) {
	p.publish(SubjectMatchResult, ev)
}
