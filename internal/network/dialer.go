package network

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lareira/internal/protocol"
)

// Peer é o lado cliente de uma conexão com o servidor: o espelho do Client do
// lado de lá. Cada envelope recebido vira um callback; nenhuma operação bloqueia
// esperando resposta da rede.
type Peer struct {
	conn *websocket.Conn
	send chan protocol.Packet

	onPacket     func(protocol.Packet)
	onDisconnect func()

	closeOnce sync.Once
	done      chan struct{}

	log *zap.Logger
}

// Dial conecta no servidor e inicia os loops de leitura e escrita. O callback
// onPacket recebe cada envelope decodificado; onDisconnect dispara uma única vez
// quando a conexão cai, por qualquer motivo.
func Dial(addr string, onPacket func(protocol.Packet), onDisconnect func(), log *zap.Logger) (*Peer, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	p := &Peer{
		conn:         conn,
		send:         make(chan protocol.Packet, sendBuffer),
		onPacket:     onPacket,
		onDisconnect: onDisconnect,
		done:         make(chan struct{}),
		log:          log,
	}

	go p.readLoop()
	go p.writeLoop()

	return p, nil
}

// Send enfileira um envelope para o servidor, sem bloquear.
func (p *Peer) Send(pkt protocol.Packet) {
	select {
	case p.send <- pkt:
	case <-p.done:
		p.log.Warn("send after disconnect dropped", zap.Stringer("messageType", pkt.MessageType))
	}
}

// Close encerra a conexão. Idempotente.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.conn.Close()
		if p.onDisconnect != nil {
			p.onDisconnect()
		}
	})
}

func (p *Peer) readLoop() {
	defer p.Close()

	p.conn.SetReadLimit(protocol.MaxPacketSize)

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}

		pkt, err := protocol.Decode(data)
		if err != nil {
			// Mensagem malformada não derruba a conexão.
			p.log.Warn("malformed envelope dropped", zap.Error(err))
			continue
		}

		if p.onPacket != nil {
			p.onPacket(pkt)
		}
	}
}

func (p *Peer) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case pkt := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			data, err := protocol.Encode(pkt)
			if err != nil {
				p.log.Error("encode failed, packet dropped", zap.Error(err))
				continue
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-p.done:
			return
		}
	}
}
