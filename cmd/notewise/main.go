// Notewise answers natural-language questions about a local note
// collection, grounding every answer in the notes themselves.
//
// Usage:
//
//	notewise ask "where did I file the tax invoice?"
//	notewise chat
//	notewise serve
//
// Configuration comes from a YAML file (--config), NOTEWISE_* environment
// variables, and an optional .env file in the working directory.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mossline/notewise/internal/config"
	"github.com/mossline/notewise/internal/engine"
	"github.com/mossline/notewise/internal/llm"
	"github.com/mossline/notewise/internal/logging"
	"github.com/mossline/notewise/internal/metrics"
	"github.com/mossline/notewise/internal/note"
	"github.com/mossline/notewise/internal/server"
)

var (
	configPath string
	notesPath  string

	// version is set via ldflags during build.
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "notewise",
	Short:   "Ask questions about your notes",
	Long:    "Notewise answers natural-language questions grounded in your local note collection.",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&notesPath, "notes", "", "path to notes JSON file (overrides config)")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		answer := eng.Ask(cmd.Context(), strings.Join(args, " "), nil)
		fmt.Println(answer)
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question session",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Println("Ask away. Ctrl-D to quit.")
		var history []llm.Message
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				continue
			}
			answer := eng.Ask(cmd.Context(), question, history)
			fmt.Println(answer)
			history = append(history,
				llm.Message{Role: llm.RoleUser, Content: question},
				llm.Message{Role: llm.RoleAssistant, Content: answer},
			)
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ask API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, log, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if cfg.Notes.Watch {
			store, ok := eng.Source().(*note.FileStore)
			if ok {
				go func() {
					if err := store.Watch(ctx.Done()); err != nil {
						log.Warn("notes watch stopped", zap.Error(err))
					}
				}()
			}
		}

		srv := server.New(eng, log, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
		if err := srv.Start(ctx); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

// buildEngine loads config, the notes file, and the LLM client, and wires
// the engine. The returned cleanup flushes the logger.
func buildEngine() (*engine.Engine, *config.Config, *zap.Logger, func(), error) {
	// Best effort; a missing .env is the normal case.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if notesPath != "" {
		cfg.Notes.Path = notesPath
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	cleanup := func() { _ = log.Sync() }

	store := note.NewFileStore(cfg.Notes.Path, log)
	if err := store.Load(); err != nil {
		cleanup()
		return nil, nil, nil, nil, err
	}

	client := llm.NewHTTPClient(llm.Config{
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		Timeout:    cfg.LLM.Timeout(),
		MaxRetries: cfg.LLM.MaxRetries,
	})

	m := metrics.New(prometheus.DefaultRegisterer)
	eng := engine.New(store, client, cfg, log, m)
	return eng, cfg, log, cleanup, nil
}
