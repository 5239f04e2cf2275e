/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/buildit/illuminate/internal/adapters/harvest"
    "github.com/buildit/illuminate/internal/adapters/jira"
    "github.com/buildit/illuminate/internal/adapters/telegram"
    "github.com/buildit/illuminate/internal/config"
    httpapi "github.com/buildit/illuminate/internal/http"
    "github.com/buildit/illuminate/internal/jobs"
    "github.com/buildit/illuminate/internal/logger"
    "github.com/buildit/illuminate/internal/repo"
    "github.com/buildit/illuminate/internal/services"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    db := repo.MustOpen(ctx, cfg, log)
    defer db.Close()
    repository := repo.NewRepository(db, log)

    var notifier services.Notifier
    if cfg.TelegramToken != "" {
        notifier = telegram.NewClient(cfg, log)
    }
    svc := services.New(cfg, log, repository,
        jira.NewClient(cfg, log), harvest.NewClient(cfg, log), notifier)

    router := httpapi.NewRouter(cfg, log, svc)

    cron := jobs.NewCron(cfg, log, svc, repository)
    cron.Start()
    defer cron.Stop()

    errCh := make(chan error, 1)
    go func() { errCh <- router.Run(cfg.HTTPAddr) }()

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil { log.Error().Err(err).Msg("http server error") }
    }

    // let in-flight ingestion runs finalize their events, bounded
    svc.Drain(30 * time.Second)
}
