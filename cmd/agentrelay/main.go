// Command agentrelay runs an interactive chat with the agent team.
//
// Configuration comes from flags and environment variables (see
// agentrelay --help). Type exit or quit to leave.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hupe1980/agentrelay"
	"github.com/hupe1980/agentrelay/config"
	"github.com/hupe1980/agentrelay/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if config.IsHelp(err) {
			fmt.Fprintln(os.Stdout, err)
			return
		}

		fmt.Fprintln(os.Stderr, "agentrelay:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	cfg, _, err := config.Load(ctx, args)
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.LoggerConfig()).WithComponent("cli")

	relay, err := agentrelay.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := relay.Close(context.Background()); err != nil {
			logger.Warn("cli.close.failed", "error", err.Error())
		}
	}()

	return chat(ctx, relay, in, out)
}

// chat reads one message per line and prints the final reply of each turn.
func chat(ctx context.Context, relay *agentrelay.Relay, in io.Reader, out io.Writer) error {
	h, err := relay.NewConversation("")
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "conversation %s started, type exit to quit\n", h.ID())

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		text := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(text) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		reply, err := h.Send(ctx, text)
		if !reply.IsZero() {
			fmt.Fprintf(out, "%s: %s\n", reply.Sender(), reply.Text())
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return err
		}
	}
}
