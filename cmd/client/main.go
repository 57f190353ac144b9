package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"lareira/internal/client"
	"lareira/internal/protocol"
)

func main() {
	addr := flag.String("addr", "localhost:2010", "endereço do servidor")
	account := flag.String("account", "", "nome da conta (vazio pergunta no prompt)")
	deckFile := flag.String("deck", "", "arquivo YAML com o baralho (vazio usa aleatório)")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	deck := client.DeckConfig{}
	if *deckFile != "" {
		deck, err = client.LoadDeck(*deckFile)
		if err != nil {
			log.Fatal("load deck", zap.Error(err))
		}
	}

	c := client.New(client.Options{
		Log:  log,
		Deck: deck,
		OnStateChange: func(old, new client.State) {
			fmt.Printf("\n[%s -> %s]\n> ", old, new)
		},
	})

	if err := c.Connect(*addr); err != nil {
		log.Fatal("connect", zap.Error(err))
	}
	defer c.Disconnect()

	if *account != "" {
		if err := c.HandShake(*account); err != nil {
			log.Fatal("handshake", zap.Error(err))
		}
	}

	fmt.Println("comandos: handshake <conta> | queue | accept | stats | users | options | play <n> [alvo] [pos] [sub] | quit")
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		if !dispatch(c, strings.Fields(scanner.Text())) {
			return
		}
		fmt.Print("> ")
	}
}

func dispatch(c *client.GameClient, args []string) bool {
	if len(args) == 0 {
		return true
	}

	var err error
	switch args[0] {
	case "handshake":
		if len(args) < 2 {
			fmt.Println("uso: handshake <conta>")
			return true
		}
		err = c.HandShake(args[1])

	case "queue":
		err = c.Queue()

	case "accept":
		// Convite e preparação chegam nessa ordem; aceita o que estiver aberto.
		if c.State() == client.StatePrepared {
			err = c.AcceptPreparation()
		} else {
			err = c.AcceptInvitation()
		}

	case "stats":
		err = c.RequestStats()

	case "users":
		for _, u := range c.Users() {
			fmt.Printf("  %5d  %-20s %-10s gameId=%d\n", u.ID, u.AccountName, u.UserState, u.GameID)
		}

	case "options":
		for i, opt := range c.PendingOptions() {
			fmt.Printf("  [%d] %s", i, opt.Type)
			if opt.MainOption != nil {
				fmt.Printf(" entity=%d targets=%v", opt.MainOption.EntityID, opt.MainOption.Targets)
			}
			fmt.Println()
		}

	case "play":
		err = play(c, args[1:])

	case "quit":
		return false

	default:
		fmt.Printf("comando desconhecido: %s\n", args[0])
	}

	if err != nil {
		fmt.Printf("erro: %v\n", err)
	}
	return true
}

func play(c *client.GameClient, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("uso: play <n> [alvo] [pos] [sub]")
	}
	nums := make([]int, 4)
	for i, arg := range args {
		if i >= len(nums) {
			break
		}
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("argumento inválido %q: %w", arg, err)
		}
		nums[i] = n
	}

	pending := c.PendingOptions()
	if nums[0] < 0 || nums[0] >= len(pending) {
		return fmt.Errorf("opção %d fora do conjunto (%d pendentes)", nums[0], len(pending))
	}
	return c.SubmitOption(protocol.PowerOptionReply{
		Option:    pending[nums[0]],
		Target:    nums[1],
		Position:  nums[2],
		SubOption: nums[3],
	})
}
