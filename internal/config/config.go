package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config concentra a configuração do servidor, lida de variáveis de ambiente.
// Todo campo tem default funcional: um processo sem ambiente nenhum sobe e
// aceita partidas.
type Config struct {
	// Endereço de escuta do servidor WebSocket.
	Address string `env:"LAREIRA_ADDR" envDefault:":2010"`

	// Cadência da varredura do matchmaker.
	TickInterval time.Duration `env:"LAREIRA_TICK_INTERVAL" envDefault:"7s"`
	// Teto de partidas criadas por varredura.
	MaxMatchesPerTick int `env:"LAREIRA_MAX_MATCHES_PER_TICK" envDefault:"5"`
	// Pausa entre o aviso de GameStart e a criação da partida no motor.
	SettleDelay time.Duration `env:"LAREIRA_SETTLE_DELAY" envDefault:"500ms"`
	// Partida sem atividade além disso é encerrada à força. Zero desliga.
	IdleTimeout time.Duration `env:"LAREIRA_IDLE_TIMEOUT" envDefault:"5m"`

	// URL do NATS para publicar eventos. Vazio desliga a publicação.
	NatsURL string `env:"LAREIRA_NATS_URL"`

	// Endereço do agente Consul para registro de serviço. Vazio desliga.
	ConsulAddress string `env:"LAREIRA_CONSUL_ADDR"`
	// Nome do serviço anunciado no Consul.
	ServiceName string `env:"LAREIRA_SERVICE_NAME" envDefault:"lareira-server"`
}

// Load lê a configuração do ambiente do processo.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
