package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"adaptive.dev/assessment-server/internal/api"
	"adaptive.dev/assessment-server/internal/config"
	"adaptive.dev/assessment-server/internal/core"
	"adaptive.dev/assessment-server/internal/logger"
	"adaptive.dev/assessment-server/internal/store"
)

func main() {
	configFile := flag.String("config", "", "YAML config file (defaults to $CONFIG_FILE)")
	provisionFile := flag.String("provision", "", "Load access codes from a Markdown table file and exit")
	flag.Parse()

	if err := run(*configFile, *provisionFile); err != nil {
		slog.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(configFile, provisionFile string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	accessLog := logger.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbStore, err := store.Open(cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize %s store: %w", cfg.Store.Driver, err)
	}
	defer dbStore.Close()

	if provisionFile != "" {
		logger.Info("provisioning access codes", "file", provisionFile, "driver", cfg.Store.Driver)
		n, err := store.ProvisionFromFile(ctx, dbStore, provisionFile)
		if err != nil {
			return fmt.Errorf("provisioning failed: %w", err)
		}
		logger.Info("provisioning complete", "records", n)
		return nil
	}

	llmService, err := core.NewLLMService(ctx, cfg.Model)
	if err != nil {
		return err
	}
	defer llmService.Close()

	if cfg.Model.ConvoPrompt == "" {
		logger.Warn("CONVO_PROMPT is empty, conversations start with an empty instruction turn")
	}

	gateway := core.NewGateway(dbStore, core.NewQuestionGenerator(llmService, cfg.Model.Timeout))
	relay := core.NewRelay(llmService, cfg.Model.ConvoPrompt, cfg.Model.Timeout)
	assistant := core.NewAssistant(llmService, cfg.Model.Timeout)

	apiHandler := api.NewAPIHandler(gateway, relay, assistant, llmService)
	router := api.NewRouter(apiHandler, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Model.Timeout + 5*time.Second,
		AccessLog:      accessLog,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Model.Timeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", srv.Addr, "chat_model", cfg.Model.ChatModel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exited gracefully")
	return nil
}
