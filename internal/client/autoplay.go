package client

import (
	"math/rand"
	"sync"

	"lareira/internal/engine"
	"lareira/internal/protocol"
)

// RandomPicker devolve um OptionPicker que joga sozinho: opção aleatória, alvo
// aleatório entre os legais e sub-escolha aleatória. Serve para bots de carga e
// para os testes de fluxo completo.
//
// O rand.Rand não é seguro para uso concorrente; o picker se protege para poder
// ser compartilhado entre clientes.
func RandomPicker(rng *rand.Rand) OptionPicker {
	var mu sync.Mutex
	return func(options []engine.PowerOption) (protocol.PowerOptionReply, bool) {
		if len(options) == 0 {
			return protocol.PowerOptionReply{}, false
		}
		mu.Lock()
		defer mu.Unlock()

		opt := options[rng.Intn(len(options))]
		reply := protocol.PowerOptionReply{Option: opt}
		if opt.MainOption != nil && len(opt.MainOption.Targets) > 0 {
			reply.Target = opt.MainOption.Targets[rng.Intn(len(opt.MainOption.Targets))]
		}
		if n := len(opt.SubOptions); n > 0 {
			reply.SubOption = rng.Intn(n)
		}
		return reply, true
	}
}
