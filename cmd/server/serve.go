package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gwi.com/botchat/internal/api"
	"gwi.com/botchat/internal/auth"
	"gwi.com/botchat/internal/core"
	"gwi.com/botchat/internal/logger"
	"gwi.com/botchat/internal/store"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dbStore, err := store.Open(ctx, logger.L, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer dbStore.Close()

	llmService, err := core.NewLLMService(ctx, logger.L, cfg.GeminiAPIKey, core.CompletionParams{
		Model:            cfg.ChatModel,
		MaxTokens:        cfg.ChatMaxTokens,
		Temperature:      cfg.ChatTemperature,
		FrequencyPenalty: cfg.ChatFrequencyPenalty,
		PresencePenalty:  cfg.ChatPresencePenalty,
	})
	if err != nil {
		return err
	}
	defer llmService.Close()

	exports, err := newArtifactStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize export storage: %w", err)
	}

	relay := core.NewRelay(logger.L, llmService, cfg.CompletionTimeout)
	chatService := core.NewChatService(logger.L, dbStore, relay, exports, cfg.ChatModel)
	accountService := core.NewAccountService(logger.L, dbStore)
	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL)

	apiHandler := api.NewAPIHandler(chatService, accountService, sessions)
	router := api.NewRouter(apiHandler, cfg.CORSAllowedOrigins)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.CompletionTimeout + 30*time.Second, // a turn may wait the full completion timeout
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.L.Info("starting server", slog.String("addr", serverAddr), slog.String("driver", cfg.DatabaseDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", serverAddr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.L.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.L.Info("server exiting gracefully")
	return nil
}
