// Package cmd provides the askdocs CLI commands.
//
// Commands:
//   - ask: one-shot documentation question
//   - chat: interactive REPL with conversation history
//   - serve: HTTP API server
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/askdocs/askdocs/internal/log"
)

// Execute is the main entry point for the askdocs CLI.
func Execute() error {
	// A missing .env file is fine; the environment may carry everything.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "ask":
		return runAsk()
	case "chat":
		return runChat()
	case "serve":
		return runServe()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("askdocs - documentation question answering over your vector store")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  askdocs ask <question>   Answer one question and exit")
	fmt.Println("  askdocs chat             Start an interactive session")
	fmt.Println("  askdocs serve [addr]     Start the HTTP API server (default: 127.0.0.1:3400)")
	fmt.Println("  askdocs --version        Show version information")
	fmt.Println("  askdocs --help           Show this help")
	fmt.Println()
	fmt.Println("Chat commands (in interactive mode):")
	fmt.Println("  /history                 Show conversation history")
	fmt.Println("  /reset                   Clear conversation history")
	fmt.Println("  /exit, /quit             Leave the session")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  OPENAI_API_KEY             Required: OpenAI API key")
	fmt.Println("  ASKDOCS_STORE_URL          Required: postgres:// URL of the section store")
	fmt.Println("  ASKDOCS_STORE_SERVICE_KEY  Required: store service role key")
	fmt.Println("  DEBUG                      Optional: enable debug logging")
}
