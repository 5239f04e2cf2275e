/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "sync"

    "github.com/buildit/illuminate/internal/adapters/jira"
    "github.com/buildit/illuminate/internal/config"
    "github.com/buildit/illuminate/internal/domain"
    "github.com/rs/zerolog"
)

// Store is the persistence surface the pipeline relies on. Reads that find
// nothing return nil rather than an error.
type Store interface {
    UpsertProject(ctx context.Context, p domain.Project) (int64, error)
    GetProjectByName(ctx context.Context, name string) (*domain.Project, error)
    ListProjects(ctx context.Context) ([]domain.Project, error)

    ListEvents(ctx context.Context, project string) ([]domain.Event, error)
    GetEvent(ctx context.Context, project string, id int64) (*domain.Event, error)
    InsertEvent(ctx context.Context, project string, ev *domain.Event) (int64, error)
    UpdateEvent(ctx context.Context, project string, ev *domain.Event) error

    ReplaceRawDocs(ctx context.Context, project, system string, docs []any) error
    ReplaceCommonDemand(ctx context.Context, project, system string, entries []domain.CommonDemandEntry) error
    ReplaceCommonEffort(ctx context.Context, project string, entries []domain.EffortEntry) error
    ReplaceSummary(ctx context.Context, project, system string, records []domain.SummaryRecord) error
    ReplaceEffortSummary(ctx context.Context, project string, records []domain.EffortSummary) error
    GetSummary(ctx context.Context, project, system string) ([]domain.SummaryRecord, error)

    // TryLock serializes critical sections per key; the release func must be
    // called by the same goroutine once the section is done.
    TryLock(ctx context.Context, key int64) (release func(), ok bool, err error)
}

type IssueSource interface {
    FetchAllIssues(ctx context.Context, src domain.SystemConfig, issueType, since string) ([]jira.RawIssue, error)
}

type EffortSource interface {
    FetchTimeEntries(ctx context.Context, src domain.SystemConfig, since string) ([]domain.EffortEntry, error)
}

type Notifier interface {
    SendMessage(ctx context.Context, chatID int64, text string) error
}

type Service struct {
    cfg    config.Config
    log    zerolog.Logger
    store  Store
    issues IssueSource
    effort EffortSource
    tg     Notifier

    ingestions sync.WaitGroup
}

// New wires the pipeline. tg may be nil when notifications are not configured.
func New(cfg config.Config, log zerolog.Logger, store Store, issues IssueSource, effort EffortSource, tg Notifier) *Service {
    return &Service{cfg: cfg, log: log, store: store, issues: issues, effort: effort, tg: tg}
}
