package jobs

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/buildit/illuminate/internal/config"
    "github.com/buildit/illuminate/internal/domain"
    "github.com/buildit/illuminate/internal/errs"
    "github.com/buildit/illuminate/internal/repo"
    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"
)

type service interface {
    CreateEvent(ctx context.Context, project, eventType string) (*domain.Event, error)
}

// Cron schedules automatic incremental loads: on each tick an UPDATE event is
// created for every project. The whole sweep runs under one advisory lock so
// only one instance sweeps at a time.
type Cron struct {
    cfg  config.Config
    log  zerolog.Logger
    svc  service
    repo *repo.Repository
    c    *cron.Cron
}

func NewCron(cfg config.Config, log zerolog.Logger, svc service, r *repo.Repository) *Cron {
    loc, _ := time.LoadLocation(cfg.TZ)
    c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
    cr := &Cron{cfg: cfg, log: log, svc: svc, repo: r, c: c}
    if cfg.UpdateCron != "" {
        _, _ = c.AddFunc(cfg.UpdateCron, cr.sweep)
    }
    return cr
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { cr.c.Stop() }

func (cr *Cron) sweep() {
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
    defer cancel()
    const lockKey int64 = 424242
    release, ok, err := cr.repo.TryLock(ctx, lockKey)
    if err != nil { cr.log.Error().Err(err).Msg("cron: lock error"); return }
    if !ok { cr.log.Info().Msg("cron: already running elsewhere"); return }
    defer release()

    projects, err := cr.repo.ListProjects(ctx)
    if err != nil { cr.log.Error().Err(err).Msg("cron: project list failed"); return }
    cr.log.Info().Int("projects", len(projects)).Msg("cron: update sweep")
    for _, p := range projects {
        if _, err := cr.svc.CreateEvent(ctx, p.Name, domain.UpdateEvent); err != nil {
            // a project mid-ingestion answers CONFLICT; that is expected, not a fault
            var e *errs.Error
            if errors.As(err, &e) && e.StatusCode == http.StatusConflict {
                cr.log.Info().Str("project", p.Name).Msg("cron: skipped, event active")
                continue
            }
            cr.log.Error().Err(err).Str("project", p.Name).Msg("cron: update failed")
        }
    }
}
