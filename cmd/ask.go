package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/askdocs/askdocs/internal/assistant"
	"github.com/askdocs/askdocs/internal/config"
)

// runAsk answers a single question and exits.
func runAsk() error {
	question := strings.TrimSpace(strings.Join(os.Args[2:], " "))
	if question == "" {
		return errors.New("usage: askdocs ask <question>")
	}

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

	answer, err := a.Query(ctx, nil, question, "")
	if err != nil {
		return printableError(err)
	}

	printAnswer(answer)
	return nil
}

// printableError flattens a user rejection into a plain message; anything
// else propagates as-is.
func printableError(err error) error {
	var e *assistant.Error
	if errors.As(err, &e) && e.Kind == assistant.KindUser {
		return errors.New(e.Message)
	}
	return err
}

// printAnswer writes the answer and its source list to stdout.
func printAnswer(answer *assistant.Answer) {
	fmt.Println(answer.Text)
	if answer.SourcesMarkdown != "" {
		fmt.Println()
		fmt.Println("Sources:")
		fmt.Println(answer.SourcesMarkdown)
	}
}
