package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/ryotagoto/mokuhyo/internal/completion"
	"github.com/ryotagoto/mokuhyo/internal/config"
	"github.com/ryotagoto/mokuhyo/internal/dialogue"
	"github.com/ryotagoto/mokuhyo/internal/directory"
	"github.com/ryotagoto/mokuhyo/internal/gateway"
	"github.com/ryotagoto/mokuhyo/internal/goal"
	"github.com/ryotagoto/mokuhyo/internal/learning"
	"github.com/ryotagoto/mokuhyo/internal/server"
	"github.com/ryotagoto/mokuhyo/internal/session"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dialogue service",
	Long:  `Starts the HTTP server and any configured chat gateways, and blocks until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}
		return runServe(cmd.Context(), cfg)
	},
}

func runServe(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := session.Open(cfg.Session)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	registrar, err := goal.NewRegistrar(cfg.Goal.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open goal registrar: %w", err)
	}
	defer registrar.Close()

	dir, err := directory.NewHTTP(cfg.Directory)
	if err != nil {
		return fmt.Errorf("failed to configure directory client: %w", err)
	}

	var hook learning.Hook = learning.Nop{}
	if cfg.Learning.Enabled {
		h, err := learning.NewHTTP(cfg.Learning)
		if err != nil {
			return fmt.Errorf("failed to configure learning hook: %w", err)
		}
		hook = h
	}

	var extractor *dialogue.Extractor
	client, err := completion.New(cfg.Completion)
	if err != nil {
		slog.Warn("Completion client unavailable, long responses fall back to heuristics", "error", err)
	} else {
		extractor = dialogue.NewExtractor(client)
		slog.Info("Completion client ready", "provider", client.Name())
	}

	gateways := gateway.NewRegistry()
	if err := gateways.Register(gateway.Null{}); err != nil {
		return err
	}

	orch := dialogue.NewOrchestrator(dialogue.NewRules(cfg.Dialogue), store, registrar, dir, extractor, hook)
	srv := server.New(orch)

	if cfg.Gateways.Slack.Enabled {
		if err := gateways.Register(gateway.NewSlack(cfg.Gateways.Slack.BotToken)); err != nil {
			return err
		}
		srv.Mount("/slack/events", server.NewSlackWebhook(cfg.Gateways.Slack.SigningSecret, orch, gateways))
	}

	if cfg.Gateways.Telegram.Enabled {
		tg, err := gateway.NewTelegram(cfg.Gateways.Telegram.BotToken, cfg.Gateways.Telegram.UpdateTimeout, orch.ProcessTurn)
		if err != nil {
			return fmt.Errorf("failed to start telegram gateway: %w", err)
		}
		if err := gateways.Register(tg); err != nil {
			return err
		}
		go tg.Listen(ctx)
	}

	readTimeout, err := config.DurationOrDefault(cfg.Server.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return err
	}
	writeTimeout, err := config.DurationOrDefault(cfg.Server.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return err
	}
	idleTimeout, err := config.DurationOrDefault(cfg.Server.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return err
	}
	shutdownTimeout, err := config.DurationOrDefault(cfg.Server.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Mokuhyo listening", "port", cfg.Server.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	slog.Info("Mokuhyo stopped gracefully")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
