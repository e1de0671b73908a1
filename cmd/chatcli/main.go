package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"community-backend/internal/chat"
	"community-backend/internal/config"
	"community-backend/internal/model"
	"community-backend/internal/utils"
	"community-backend/pkg/logger"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		assistant  string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "chatcli",
		Short: "Chat with a community assistant from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := logger.InitWithOutput(logLevel, cfg.Log.Format, cmd.ErrOrStderr()); err != nil {
				return err
			}

			a, ok := cfg.Assistants[assistant]
			if !ok {
				return fmt.Errorf("unknown assistant %q", assistant)
			}

			completer, err := model.NewCompleter(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			session := chat.NewSession("", chat.Options{
				Assistant:         assistant,
				SystemInstruction: a.SystemInstruction,
				Greeting:          a.Greeting,
				Prompts:           a.Prompts,
				NoResponseText:    cfg.Chat.NoResponseText,
				ProviderErrorText: cfg.Chat.ProviderErrorText,
				NetworkErrorText:  cfg.Chat.NetworkErrorText,
				CopyAckDuration:   cfg.Chat.CopyAckDuration,
			}, completer, utils.SystemClipboard{})
			defer session.Close()

			return newREPL(session, a.Title, cmd.InOrStdin(), cmd.OutOrStdout()).run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path (defaults and env only when empty)")
	cmd.Flags().StringVarP(&assistant, "assistant", "a", "rights", "assistant to talk to")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level")

	return cmd
}

type repl struct {
	session *chat.Session
	title   string
	in      io.Reader
	out     io.Writer
}

func newREPL(session *chat.Session, title string, in io.Reader, out io.Writer) *repl {
	return &repl{session: session, title: title, in: in, out: out}
}

func (r *repl) run(ctx context.Context) error {
	if r.title != "" {
		fmt.Fprintf(r.out, "== %s ==\n", r.title)
	}
	for _, m := range r.session.Messages() {
		r.printMessage(m)
	}
	fmt.Fprintln(r.out, "(/prompts, /prompt N, /copy N, /quit)")

	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			r.send(r.session.Send(ctx, line))
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "/quit", "/q":
			fmt.Fprintln(r.out, "Bye.")
			return nil
		case "/prompts":
			for i, p := range r.session.Prompts() {
				fmt.Fprintf(r.out, "  %d. %s\n", i+1, p)
			}
		case "/prompt":
			n, ok := argIndex(fields)
			if !ok {
				fmt.Fprintln(r.out, "usage: /prompt N")
				continue
			}
			r.send(r.session.SendPrompt(ctx, n-1))
		case "/copy":
			n, ok := argIndex(fields)
			messages := r.session.Messages()
			if !ok || n < 1 || n > len(messages) {
				fmt.Fprintln(r.out, "usage: /copy N (message number)")
				continue
			}
			if _, copied := r.session.Copy(messages[n-1].ID); copied {
				fmt.Fprintln(r.out, "Copied!")
			} else {
				fmt.Fprintln(r.out, "Copy failed.")
			}
		default:
			fmt.Fprintf(r.out, "unknown command %s\n", fields[0])
		}
	}
}

func (r *repl) send(exchange chat.Exchange, accepted bool) {
	if !accepted {
		fmt.Fprintln(r.out, "(ignored)")
		return
	}
	r.printMessage(exchange.Reply)
}

func (r *repl) printMessage(m model.Message) {
	n := 0
	for i, msg := range r.session.Messages() {
		if msg.ID == m.ID {
			n = i + 1
			break
		}
	}
	fmt.Fprintf(r.out, "[%d] %s: %s\n", n, m.Sender, m.Text)
}

func argIndex(fields []string) (int, bool) {
	if len(fields) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
