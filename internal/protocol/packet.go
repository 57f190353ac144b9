package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxPacketSize é o limite de segurança para um único envelope.
// Mensagens maiores que isso são rejeitadas antes de qualquer decodificação.
const MaxPacketSize = 1024 * 1024 // 1 MiB

var (
	// ErrMalformedEnvelope indica bytes que não formam um envelope válido.
	// Quem recebe esse erro deve logar e descartar a mensagem, nunca derrubar a conexão.
	ErrMalformedEnvelope = errors.New("protocol: malformed envelope")

	// ErrUnknownMessageKind indica uma tag de tipo que esta versão não conhece.
	// Política recomendada: logar e ignorar no despacho.
	ErrUnknownMessageKind = errors.New("protocol: unknown message kind")
)

// MessageType seleciona como o Payload do envelope deve ser interpretado.
// A interpretação é SEMPRE decidida pela tag, nunca pelo conteúdo.
type MessageType int

const (
	MessageNone MessageType = iota
	MessageHandShake
	MessageStats
	MessageQueue
	MessageResponse
	MessageGameRequest
	MessageGameResponse
)

var messageTypeNames = map[MessageType]string{
	MessageNone:         "None",
	MessageHandShake:    "HandShake",
	MessageStats:        "Stats",
	MessageQueue:        "Queue",
	MessageResponse:     "Response",
	MessageGameRequest:  "GameRequest",
	MessageGameResponse: "GameResponse",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", int(t))
}

// Known informa se a tag é conhecida por esta versão do protocolo.
func (t MessageType) Known() bool {
	_, ok := messageTypeNames[t]
	return ok
}

// Packet é o envelope padrão para toda a comunicação.
// Id e Token identificam quem envia (uma conta ou o próprio servidor),
// GameId escopa a mensagem a uma partida (-1 quando não há nenhuma) e
// Payload fica em JSON bruto para ser decodificado só depois do despacho pela tag.
type Packet struct {
	ID          int             `json:"id"`
	GameID      int             `json:"gameId"`
	PlayerID    int             `json:"playerId"`
	Token       string          `json:"token"`
	MessageType MessageType     `json:"messageType"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// Encode serializa o envelope para os bytes que vão na conexão.
func Encode(p Packet) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return data, nil
}

// Decode faz o caminho inverso. Só o envelope externo é decodificado aqui;
// o payload aninhado espera até o despacho saber qual é a forma correta.
func Decode(data []byte) (Packet, error) {
	if len(data) > MaxPacketSize {
		return Packet{}, fmt.Errorf("%w: packet of %d bytes exceeds max size %d", ErrMalformedEnvelope, len(data), MaxPacketSize)
	}
	var p Packet
	if err := json.Unmarshal(data, &p); err != nil {
		return Packet{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return p, nil
}

// Unmarshal decodifica um payload aninhado, já sabendo a forma pelo despacho.
func Unmarshal(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return nil
}
