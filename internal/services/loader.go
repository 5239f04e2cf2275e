/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "fmt"
    "time"

    "github.com/buildit/illuminate/internal/adapters/jira"
    "github.com/buildit/illuminate/internal/domain"
    "github.com/rs/zerolog"
)

// ProcessProjectData runs one ingestion pass for every subsystem the event
// carries. It is launched in the background by CreateEvent and never blocks a
// request; it owns its own deadline so an abandoned upstream cannot pin the
// event in PENDING forever. The event row is terminal after this returns:
// SUCCESS only when every configured subsystem completed, FAILED otherwise,
// endTime set either way.
func (s *Service) ProcessProjectData(project *domain.Project, ev *domain.Event) {
    ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LoadTimeout)
    defer cancel()
    log := s.log.With().Str("project", project.Name).Int64("event", ev.ID).Logger()
    log.Info().Str("type", ev.Type).Str("since", ev.Since).Msg("ingestion: start")

    ok := true
    if ev.Demand != nil {
        ok = s.runSystem(ctx, log, "demand", ev.Demand, func() error {
            return s.loadDemand(ctx, project, ev.Since)
        }) && ok
    }
    if ev.Defect != nil {
        ok = s.runSystem(ctx, log, "defect", ev.Defect, func() error {
            return s.loadDefect(ctx, project, ev.Since)
        }) && ok
    }
    if ev.Effort != nil {
        ok = s.runSystem(ctx, log, "effort", ev.Effort, func() error {
            return s.loadEffort(ctx, project, ev.Since)
        }) && ok
    }

    now := time.Now().UTC()
    ev.EndTime = &now
    if ok {
        ev.Status = domain.SuccessEvent
    } else {
        ev.Status = domain.FailedEvent
        ev.Note = firstFailureNote(ev)
    }
    if err := s.store.UpdateEvent(ctx, project.Name, ev); err != nil {
        log.Error().Err(err).Msg("ingestion: event finalize failed")
        return
    }
    log.Info().Str("status", ev.Status).Msg("ingestion: done")
    s.notifyCompletion(ctx, project, ev)
}

// Drain waits up to timeout for in-flight ingestion runs to finalize their
// events, so a terminating process does not strand an event in PENDING.
func (s *Service) Drain(timeout time.Duration) {
    done := make(chan struct{})
    go func() { s.ingestions.Wait(); close(done) }()
    select {
    case <-done:
    case <-time.After(timeout):
        s.log.Warn().Dur("timeout", timeout).Msg("shutdown: ingestion still running")
    }
}

// runSystem executes one subsystem load and records its terminal status on the
// event marker. A failure is recorded, not propagated: the remaining
// subsystems still run.
func (s *Service) runSystem(ctx context.Context, log zerolog.Logger, name string, marker *domain.SystemStatus, fn func() error) bool {
    err := fn()
    now := time.Now().UTC()
    marker.EndTime = &now
    if err != nil {
        marker.Status = domain.FailedEvent
        marker.Note = err.Error()
        log.Error().Err(err).Str("system", name).Msg("ingestion: subsystem failed")
        return false
    }
    marker.Status = domain.SuccessEvent
    log.Info().Str("system", name).Msg("ingestion: subsystem complete")
    return true
}

func (s *Service) loadDemand(ctx context.Context, project *domain.Project, since string) error {
    issues, err := s.issues.FetchAllIssues(ctx, *project.Demand, domain.JiraDemandType, since)
    if err != nil { return err }
    if err := s.store.ReplaceRawDocs(ctx, project.Name, domain.DemandSystem, rawDocs(issues)); err != nil { return err }
    common := jira.TransformRawToCommon(issues, domain.JiraInitialStatus)
    if err := s.store.ReplaceCommonDemand(ctx, project.Name, domain.DemandSystem, common); err != nil { return err }
    return s.store.ReplaceSummary(ctx, project.Name, domain.DemandSystem, TransformCommonToSummary(common))
}

func (s *Service) loadDefect(ctx context.Context, project *domain.Project, since string) error {
    issues, err := s.issues.FetchAllIssues(ctx, *project.Defect, domain.JiraDefectType, since)
    if err != nil { return err }
    if err := s.store.ReplaceRawDocs(ctx, project.Name, domain.DefectSystem, rawDocs(issues)); err != nil { return err }
    common := jira.TransformRawToCommon(issues, domain.JiraInitialStatus)
    if err := s.store.ReplaceCommonDemand(ctx, project.Name, domain.DefectSystem, common); err != nil { return err }
    return s.store.ReplaceSummary(ctx, project.Name, domain.DefectSystem, TransformCommonToSummary(common))
}

func (s *Service) loadEffort(ctx context.Context, project *domain.Project, since string) error {
    entries, err := s.effort.FetchTimeEntries(ctx, *project.Effort, since)
    if err != nil { return err }
    docs := make([]any, 0, len(entries))
    for i := range entries { docs = append(docs, entries[i]) }
    if err := s.store.ReplaceRawDocs(ctx, project.Name, domain.EffortSystem, docs); err != nil { return err }
    if err := s.store.ReplaceCommonEffort(ctx, project.Name, entries); err != nil { return err }
    return s.store.ReplaceEffortSummary(ctx, project.Name, TransformEffortToSummary(entries))
}

func rawDocs(issues []jira.RawIssue) []any {
    docs := make([]any, 0, len(issues))
    for i := range issues { docs = append(docs, issues[i]) }
    return docs
}

func firstFailureNote(ev *domain.Event) string {
    for _, st := range []*domain.SystemStatus{ev.Demand, ev.Defect, ev.Effort} {
        if st != nil && st.Status == domain.FailedEvent && st.Note != "" { return st.Note }
    }
    return ""
}

// notifyCompletion announces the run's outcome, plus the forecast when the
// fresh demand summary now classifies the project as ERROR. Notification
// failures are logged and dropped.
func (s *Service) notifyCompletion(ctx context.Context, project *domain.Project, ev *domain.Event) {
    if s.tg == nil || len(s.cfg.TelegramChatIDs) == 0 { return }
    text := fmt.Sprintf("%s %s event %d for %s", ev.Status, ev.Type, ev.ID, project.Name)
    if ev.Status == domain.SuccessEvent && ev.Demand != nil {
        if series, err := s.store.GetSummary(ctx, project.Name, domain.DemandSystem); err == nil {
            if r := Predict(project, series); r != nil && r.RagStatus == domain.RagError {
                text += fmt.Sprintf("\nforecast %s: completion %s vs target %s", r.RagStatus, r.Actual, r.Expected)
            }
        }
    }
    for _, chatID := range s.cfg.TelegramChatIDs {
        if err := s.tg.SendMessage(ctx, chatID, text); err != nil {
            s.log.Warn().Err(err).Int64("chat", chatID).Msg("notify failed")
        }
    }
}
