package network

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lareira/internal/protocol"
)

// Server é a ponta de rede do servidor de partidas. Ele promove conexões HTTP
// para WebSocket e entrega cada cliente ao Hub.
type Server struct {
	hub *Hub
	log *zap.Logger
}

var upgrader = websocket.Upgrader{
	// Em desenvolvimento aceitamos qualquer origem.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// NewServer aceita um EventHandler: este é o ponto de injeção da camada de sessão.
func NewServer(handler EventHandler, log *zap.Logger) *Server {
	return &Server{
		hub: NewHub(handler, log),
		log: log,
	}
}

// wsHandler é o ponto de entrada das conexões de clientes.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:   uuid.New(),
		conn: conn,
		hub:  s.hub,
		send: make(chan protocol.Packet, sendBuffer),
		log:  s.log,
	}

	client.hub.register <- client

	go client.writeLoop()
	go client.readLoop()
}

// Handler devolve o mux HTTP do servidor: a rota /ws para o jogo e /health para
// o check de serviço (Consul).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.wsHandler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Listen inicia a goroutine do Hub e serve HTTP no endereço dado. Bloqueante.
func (s *Server) Listen(address string) error {
	go s.hub.Run()

	s.log.Info("websocket server listening", zap.String("addr", address), zap.String("path", "/ws"))
	return http.ListenAndServe(address, s.Handler())
}
