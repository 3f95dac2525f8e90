// Package app assembles one chat front-end into a runnable command.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/gemini-chat/internal/config"
	"github.com/zhouzirui/gemini-chat/internal/handler"
	"github.com/zhouzirui/gemini-chat/internal/handler/page"
	"github.com/zhouzirui/gemini-chat/internal/llm"
	"github.com/zhouzirui/gemini-chat/internal/logging"
	"github.com/zhouzirui/gemini-chat/internal/server"
	"github.com/zhouzirui/gemini-chat/internal/service/chat"
)

// NewCommand returns the root command serving variant.
func NewCommand(variant page.Variant) *cobra.Command {
	return &cobra.Command{
		Use:           variant.Name,
		Short:         "Serve the " + variant.Heading + " web front-end",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, variant)
		},
	}
}

// Execute runs the command for variant and exits non-zero on failure.
func Execute(variant page.Variant) {
	if err := NewCommand(variant).ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

// Run loads configuration, connects to the chat provider and serves until ctx ends.
func Run(ctx context.Context, variant page.Variant) error {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	logging.Setup(os.Stdout, cfg.LogLevel)
	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file loaded, using process environment")
	}

	client, err := llm.NewClient(ctx, cfg.AI, variant.Stream)
	if err != nil {
		return errors.Wrap(err, "initialize chat provider")
	}
	log.Info().
		Str("variant", variant.Name).
		Str("provider", cfg.AI.Provider).
		Bool("stream", variant.Stream).
		Msg("chat provider ready")

	chatSvc := chat.NewService(client, chat.WithIdleTimeout(cfg.Session.IdleTimeout))
	router := handler.NewRouter(chatSvc, variant)

	return server.Run(ctx, cfg.Server, router, chatSvc.StartGC)
}
