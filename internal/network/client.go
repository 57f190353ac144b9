package network

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lareira/internal/protocol"
)

const (
	// Tempo para aguardar por uma escrita na conexão.
	writeWait = 10 * time.Second

	// Tempo máximo para aguardar por uma resposta de pong do cliente.
	pongWait = 60 * time.Second

	// Frequência com que enviamos pings. Deve ser menor que pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Tamanho do buffer de saída de cada cliente.
	sendBuffer = 256
)

// Client é a representação de um jogador conectado do ponto de vista do servidor.
// Ele agrupa a conexão, o canal de saída e uma identidade para os logs.
type Client struct {
	// Identidade da conexão, usada nos logs e para remoção no registro.
	id uuid.UUID

	conn *websocket.Conn

	// Referência de volta ao Hub, para se (des)registrar.
	hub *Hub

	// Canal bufferizado de saída. O writeLoop drena este canal; o buffer evita
	// que a camada de sessão bloqueie num cliente lento.
	send chan protocol.Packet

	// Protege 'closed'. A camada de sessão pode chamar Send depois do Hub já
	// ter desregistrado o cliente; enviar num canal fechado mataria o processo.
	mu     sync.Mutex
	closed bool

	log *zap.Logger
}

// ID devolve a identidade desta conexão.
func (c *Client) ID() uuid.UUID { return c.id }

// RemoteAddr devolve o endereço remoto da conexão subjacente.
func (c *Client) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Send enfileira um envelope para entrega, sem bloquear. Se o buffer do cliente
// está cheio a mensagem é descartada com um aviso; um cliente tão atrasado assim
// já está efetivamente morto e o ping vai derrubá-lo.
func (c *Client) Send(pkt protocol.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.log.Debug("send on closed connection, dropping packet",
			zap.String("conn", c.id.String()),
			zap.Stringer("messageType", pkt.MessageType))
		return
	}
	select {
	case c.send <- pkt:
	default:
		c.log.Warn("send buffer full, dropping packet",
			zap.String("conn", c.id.String()),
			zap.Stringer("messageType", pkt.MessageType))
	}
}

// closeSend fecha o canal de saída de forma segura para chamadas concorrentes
// a Send. Só o Hub chama isto, uma única vez, ao desregistrar o cliente.
func (c *Client) closeSend() {
	c.mu.Lock()
	c.closed = true
	close(c.send)
	c.mu.Unlock()
}

func (c *Client) readLoop() {
	// Garante a limpeza quando o loop terminar.
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(protocol.MaxPacketSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("unexpected close", zap.String("conn", c.id.String()), zap.Error(err))
			}
			break
		}

		pkt, err := protocol.Decode(data)
		if err != nil {
			// Envelope malformado: loga e descarta. A conexão continua viva.
			if errors.Is(err, protocol.ErrMalformedEnvelope) {
				c.log.Warn("malformed envelope dropped", zap.String("conn", c.id.String()), zap.Error(err))
				continue
			}
			c.log.Warn("undecodable packet dropped", zap.String("conn", c.id.String()), zap.Error(err))
			continue
		}

		c.hub.incoming <- clientMessage{client: c, pkt: pkt}
	}
}

// writeLoop bombeia envelopes do canal 'send' para a conexão WebSocket.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case pkt, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			// O canal foi fechado pelo Hub: o cliente foi desregistrado.
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := protocol.Encode(pkt)
			if err != nil {
				c.log.Error("encode failed, packet dropped", zap.String("conn", c.id.String()), zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Warn("write failed", zap.String("conn", c.id.String()), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
