package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tnqbao/gau-playbook-orchestrator/config"
	"github.com/tnqbao/gau-playbook-orchestrator/http/controller"
	middlewares "github.com/tnqbao/gau-playbook-orchestrator/http/middleware"
	"github.com/tnqbao/gau-playbook-orchestrator/http/route"
	infraPkg "github.com/tnqbao/gau-playbook-orchestrator/infra"
	"github.com/tnqbao/gau-playbook-orchestrator/notify"
	"github.com/tnqbao/gau-playbook-orchestrator/repository"
	"github.com/tnqbao/gau-playbook-orchestrator/runner"
)

func main() {
	err := godotenv.Load("staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)
	env := cfg.EnvConfig

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub(infra.Logger, middlewares.OriginChecker(env))
	notifiers := notify.Notifiers{}
	if infra.Redis != nil {
		relay := notify.NewRedisRelay(infra.Redis, env.Redis.Channel, hub, infra.Logger)
		go func() {
			if err := relay.Run(ctx); err != nil {
				infra.Logger.ErrorWithContextf(ctx, err, "[Main] Redis relay stopped")
			}
		}()
		notifiers = append(notifiers, relay)
	} else {
		notifiers = append(notifiers, hub)
	}
	if infra.Produce != nil {
		notifiers = append(notifiers, notify.NewBrokerNotifier(infra.Produce.ExecutionService, infra.Logger))
	}

	catalog := runner.NewCatalog(env.Paths.Playbooks)
	jobRunner := runner.NewRunner(repo, infra.Ansible, catalog, runner.NewInventoryBuilder(env.Paths.Inventory),
		infra.Logger, infra.Telemetry)

	pool := runner.NewPool(env.Runner.Workers, env.Runner.QueueSize, infra.Logger)
	if err := pool.RegisterMetrics(infra.Telemetry.Meter); err != nil {
		infra.Logger.WarningWithContextf(ctx, "[Main] Failed to register pool metrics: %v", err)
	}

	ctrl := controller.NewController(cfg, infra, repo, controller.Services{
		Catalog:    catalog,
		Dispatcher: runner.NewDispatcher(jobRunner, pool, notifiers, infra.Logger),
		Prober:     runner.NewProber(repo, infra.Ansible, infra.Logger),
		Hub:        hub,
	})

	router := routes.SetupRouter(ctrl)
	server := &http.Server{
		Addr:    ":" + env.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("HTTP Server started on :%s", env.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infra.Logger.InfoWithContextf(ctx, "[Main] Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		infra.Logger.ErrorWithContextf(shutdownCtx, err, "[Main] HTTP server shutdown failed")
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		infra.Logger.WarningWithContextf(shutdownCtx, "[Main] Executions still running at shutdown: %v", err)
	}
	cancel()
	hub.Close()
	infra.Close(shutdownCtx)

	log.Println("Server exited properly")
}
