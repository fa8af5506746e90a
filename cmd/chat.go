package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/session"
)

// runChat starts an interactive question answering session.
func runChat() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	a, pool, err := buildAssistant(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	sess := session.New(cfg.MaxHistoryMessages)

	fmt.Printf("askdocs %s — ask about the documentation. /exit to leave.\n", Version)
	fmt.Printf("Session: %s\n\n", sess.ID())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := runChatCommand(line, sess); done {
				return nil
			}
			continue
		}

		answer, err := a.Query(ctx, sess, line, "")
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", printableError(err))
			continue
		}

		fmt.Println()
		printAnswer(answer)
		fmt.Println()
	}
}

// runChatCommand handles slash commands. Returns true when the session
// should end.
func runChatCommand(line string, sess *session.Session) bool {
	switch line {
	case "/exit", "/quit":
		fmt.Println("bye")
		return true
	case "/reset":
		sess.Reset()
		fmt.Println("history cleared")
	case "/history":
		messages := sess.Messages()
		if len(messages) == 0 {
			fmt.Println("no history yet")
			break
		}
		for _, m := range messages {
			fmt.Printf("[%s] %s\n", m.Role, m.Content)
		}
		fmt.Printf("(%d messages, %d tokens used)\n", len(messages), sess.TotalTokens())
	case "/help":
		fmt.Println("/history  show conversation history")
		fmt.Println("/reset    clear conversation history")
		fmt.Println("/exit     leave the session")
	default:
		fmt.Printf("unknown command: %s (try /help)\n", line)
	}
	return false
}
