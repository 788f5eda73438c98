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

	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/spf13/cobra"
)

const chatHelp = `commands: /status /reconnect /disconnect /history /quit`

func newChatCmd(c *cli) *cobra.Command {
	var (
		workspaceID int64
		sessionID   string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the analytics assistant from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if workspaceID == 0 {
				workspaceID = c.cfg.Chat.WorkspaceID
			}
			return a.repl(ctx, workspaceID, sessionID, os.Stdin, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int64Var(&workspaceID, "workspace", 0, "workspace to chat in")
	cmd.Flags().StringVar(&sessionID, "session", "", "resume an existing chat session")
	return cmd
}

func (a *app) repl(ctx context.Context, workspaceID int64, sessionID string, in io.Reader, out io.Writer) error {
	active := a.chat.Activate(ctx, workspaceID, sessionID)
	if domain.IsProvisional(active) {
		fmt.Fprintf(out, "session %s (offline, replies are placeholders)\n", active)
	} else {
		fmt.Fprintf(out, "session %s\n", active)
	}
	for _, msg := range a.chat.Messages() {
		printMessage(out, msg)
	}
	fmt.Fprintln(out, chatHelp)

	messages, cancel := a.chat.Subscribe()
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if msg.Role == domain.RoleAssistant {
				printMessage(out, msg)
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := a.handleLine(ctx, strings.TrimSpace(line), out); quit {
				return nil
			}
		}
	}
}

func (a *app) handleLine(ctx context.Context, line string, out io.Writer) bool {
	switch line {
	case "":
		return false
	case "/quit", "/exit":
		return true
	case "/status":
		fmt.Fprintf(out, "status: %s session: %s\n", a.chat.Status(), a.chat.SessionID())
	case "/reconnect":
		a.manager.Reconnect()
	case "/disconnect":
		a.manager.Disconnect()
	case "/history":
		for _, msg := range a.chat.Messages() {
			printMessage(out, msg)
		}
	default:
		if err := a.chat.Send(ctx, line); err != nil {
			fmt.Fprintf(out, "! %v\n", err)
		}
	}
	return false
}

func printMessage(out io.Writer, msg domain.Message) {
	who := "you"
	if msg.Role == domain.RoleAssistant {
		who = "assistant"
	}

	prose := msg.Display.Prose
	if prose == "" && len(msg.Display.Charts) == 0 {
		prose = msg.Content
	}
	if prose != "" {
		fmt.Fprintf(out, "%s> %s\n", who, prose)
	}

	charts := msg.Display.Charts
	if len(charts) == 0 && msg.Chart != nil {
		charts = []domain.ChartRecord{*msg.Chart}
	}
	for _, chart := range charts {
		fmt.Fprintf(out, "  [%s chart] %s (%d labels, %d series)\n",
			chart.Type, chart.Title, len(chart.Data.Labels), len(chart.Data.Datasets))
		for _, insight := range chart.Insights {
			fmt.Fprintf(out, "    - %s\n", insight)
		}
	}
}
