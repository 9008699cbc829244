package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"caixadiario/internal/config"
	"caixadiario/internal/infra"
	"caixadiario/internal/repository"
	"caixadiario/internal/router"
	"caixadiario/internal/service"
	"caixadiario/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger — dev: pretty, prod: JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	// Redis is optional: without it closings run unlocked (single instance)
	// and no background jobs are processed.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without lock and workers")
			rdb = nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fechamentoRepo := repository.NewFechamentoRepository(db)

	var emails worker.EmailEnqueuer
	if rdb != nil {
		dispatcher := worker.NewDispatcher(rdb)
		handlers := map[string]worker.JobHandler{}

		emailTo := ""
		if cfg.EmailEnabled() {
			emails = dispatcher
			emailTo = cfg.ResumoEmailTo
			smtpCB := infra.NewCircuitBreaker(infra.DefaultCBConfig("smtp"))
			handlers[worker.JobEmail] = worker.NewEmailWorker(infra.NewMailer(cfg), smtpCB).Process
			worker.StartRetryCron(ctx, worker.RetryCronConfig{RDB: rdb, CB: smtpCB, Queue: worker.QueueEmail})
		}
		handlers[worker.JobResumo] = worker.NewResumoWorker(fechamentoRepo, cfg.PDFStoragePath, emails, emailTo).Process

		worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, handlers)
	}

	if cfg.AuditoriaEnabled {
		auditoria := worker.AuditoriaConfig{
			Relatorios: service.NewRelatorioService(fechamentoRepo),
			Emails:     emails,
			EmailTo:    cfg.ResumoEmailTo,
			Horario:    cfg.AuditoriaHorario,
		}
		if err := worker.StartAuditoria(ctx, auditoria); err != nil {
			log.Fatal().Err(err).Msg("failed to schedule auditoria")
		}
	}

	r := router.New(cfg, db, rdb)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("caixa diario backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}
