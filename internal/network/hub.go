package network

import (
	"go.uber.org/zap"

	"lareira/internal/protocol"
)

// clientMessage empacota um envelope com o cliente que o enviou.
type clientMessage struct {
	client *Client
	pkt    protocol.Packet
}

// Hub mantém o conjunto de clientes ativos e roteia eventos para o handler.
type Hub struct {
	// Clientes registrados. Acessado SOMENTE pela goroutine do Hub.
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	incoming   chan clientMessage

	handler EventHandler

	log *zap.Logger
}

// NewHub cria, inicializa e retorna um novo Hub.
func NewHub(handler EventHandler, log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		incoming:   make(chan clientMessage, 64),
		handler:    handler,
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.handler.OnConnect(client)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				// A sessão ainda pode mandar pacotes de despedida (GameStop
				// para o próprio cliente que caiu), então o handler roda antes
				// de fecharmos o canal. Fechar 'send' é o sinal para o
				// writeLoop daquele cliente parar.
				h.handler.OnDisconnect(client)
				client.closeSend()
			}

		case clientMsg := <-h.incoming:
			// O Hub não se importa com o conteúdo. Cada envelope é despachado
			// em sua própria goroutine: a camada de sessão precisa ser segura
			// sob entrega concorrente, e aqui é onde isso vira verdade.
			go h.handler.OnMessage(clientMsg.client, clientMsg.pkt)
		}
	}
}
