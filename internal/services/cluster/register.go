package cluster

import (
	"fmt"
	"os"
	"strings"

	consul "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

// newClient tenta se conectar a uma lista de endereços Consul (separados por
// vírgula) até encontrar um agente saudável com um líder.
func newClient(addrs string, log *zap.Logger) (*consul.Client, error) {
	for _, node := range strings.Split(addrs, ",") {
		node = strings.TrimSpace(node)
		cfg := consul.DefaultConfig()
		cfg.Address = node

		client, err := consul.NewClient(cfg)
		if err != nil {
			log.Warn("consul node unreachable", zap.String("node", node), zap.Error(err))
			continue
		}
		if _, err := client.Status().Leader(); err != nil {
			log.Warn("consul node has no leader", zap.String("node", node), zap.Error(err))
			continue
		}
		log.Info("connected to consul node", zap.String("node", node))
		return client, nil
	}
	return nil, fmt.Errorf("no consul node available in %q", addrs)
}

// Register anuncia o servidor no Consul, com um health check HTTP apontando
// para o /health que o próprio servidor serve. O erro volta para quem chamou:
// rodar sem Consul é um modo suportado, não uma morte do processo.
func Register(addrs, serviceName string, servicePort int, log *zap.Logger) error {
	client, err := newClient(addrs, log)
	if err != nil {
		return err
	}

	// O hostname dá um ID único por instância e, dentro da rede do compose, é
	// resolvível por DNS para o health check.
	hostname := os.Getenv("HOSTNAME")
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	serviceID := fmt.Sprintf("%s-%s", serviceName, hostname)

	registration := &consul.AgentServiceRegistration{
		ID:   serviceID,
		Name: serviceName,
		Port: servicePort,
		Check: &consul.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/health", hostname, servicePort),
			Timeout:                        "5s",
			Interval:                       "10s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}

	if err := client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("register service in consul: %w", err)
	}

	log.Info("service registered in consul",
		zap.String("serviceId", serviceID),
		zap.String("serviceName", serviceName),
		zap.Int("port", servicePort))
	return nil
}
