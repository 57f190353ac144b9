package network

import "lareira/internal/protocol"

// EventHandler é a interface que conecta a camada de rede com a camada de sessão.
// O código de sessão (fora deste pacote) implementa esta interface.
//
// Atenção ao modelo de entrega: OnMessage pode ser invocado concorrentemente,
// inclusive para a mesma conexão. Quem implementa não pode assumir entrega
// serializada.
type EventHandler interface {
	// OnConnect é chamado quando um novo cliente se conecta com sucesso.
	OnConnect(c *Client)

	// OnDisconnect é chamado quando um cliente se desconecta.
	OnDisconnect(c *Client)

	// OnMessage é chamado para cada envelope decodificado com sucesso.
	OnMessage(c *Client, pkt protocol.Packet)
}
