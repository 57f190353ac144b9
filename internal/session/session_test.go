package session

import (
	"sync"

	"go.uber.org/zap"

	"lareira/internal/protocol"
)

// fakeConn grava os pacotes enviados, para os testes inspecionarem o que o
// servidor mandou para cada jogador.
type fakeConn struct {
	mu      sync.Mutex
	packets []protocol.Packet
}

func (c *fakeConn) Send(pkt protocol.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packets = append(c.packets, pkt)
}

func (c *fakeConn) sent() []protocol.Packet {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.Packet, len(c.packets))
	copy(out, c.packets)
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packets = nil
}

// lastGameRequest devolve o último GameRequest do tipo dado que a conexão
// recebeu, decodificado até a folha.
func (c *fakeConn) gameRequests(t protocol.GameRequestType) []protocol.GameRequest {
	var out []protocol.GameRequest
	for _, pkt := range c.sent() {
		if pkt.MessageType != protocol.MessageGameRequest {
			continue
		}
		var req protocol.GameRequest
		if err := protocol.Unmarshal(pkt.Payload, &req); err != nil {
			continue
		}
		if req.Type == t {
			out = append(out, req)
		}
	}
	return out
}

func testLogger() *zap.Logger { return zap.NewNop() }
