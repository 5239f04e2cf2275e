/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "fmt"
    "hash/fnv"
    "sort"
    "strings"
    "time"

    "github.com/buildit/illuminate/internal/domain"
    "github.com/buildit/illuminate/internal/errs"
)

const noSystemsNote = "No Demand, Defect, or Effort system configured for this project"

// CreateEvent starts one ingestion run for a project. It rejects unknown event
// types, unknown projects, and projects with an event still in flight. The
// created event is persisted before ingestion starts; ingestion itself runs in
// the background and the caller does not wait for it.
func (s *Service) CreateEvent(ctx context.Context, projectName, requestedType string) (*domain.Event, error) {
    eventType := strings.ToUpper(strings.TrimSpace(requestedType))
    if eventType != domain.LoadEvent && eventType != domain.UpdateEvent {
        return nil, errs.Validation(fmt.Sprintf(
            "Query Parameter type must be specified.  Must either be %s or %s", domain.LoadEvent, domain.UpdateEvent))
    }

    project, err := s.store.GetProjectByName(ctx, projectName)
    if err != nil {
        s.log.Error().Err(err).Str("project", projectName).Msg("createEvent: project lookup failed")
        return nil, errs.Internal("Unable to find project information for " + projectName)
    }
    if project == nil {
        return nil, errs.NotFound("Unable to find project information for " + projectName)
    }

    // The active-event check below is read-then-write; a per-project advisory
    // lock keeps two concurrent create requests from both passing it.
    release, locked, err := s.store.TryLock(ctx, projectLockKey(projectName))
    if err != nil {
        s.log.Error().Err(err).Str("project", projectName).Msg("createEvent: lock failed")
        return nil, errs.Internal("Unable to create event for " + projectName)
    }
    if !locked {
        return nil, errs.Conflict("There is currently an active event for this project, please wait for it to complete.")
    }
    defer release()

    prior, err := s.MostRecentEvent(ctx, projectName)
    if err != nil {
        return nil, errs.Internal("Unable to find events for " + projectName)
    }
    if prior != nil && prior.Active() {
        url := fmt.Sprintf("%s/v1/project/%s/event/%d", s.cfg.PublicBaseURL, projectName, prior.ID)
        return nil, errs.Conflict(
            "There is currently an active event for this project, please wait for it to complete.  " + url)
    }

    ev := domain.NewEvent(eventType)
    if prior != nil && eventType == domain.UpdateEvent {
        ev.Since = sinceFrom(prior)
    }
    configureEventSystems(project, ev)

    id, err := s.store.InsertEvent(ctx, projectName, ev)
    if err != nil || id == 0 {
        s.log.Error().Err(err).Str("project", projectName).Msg("createEvent: insert failed")
        return nil, errs.Internal("Unable to create event for " + projectName)
    }

    if ev.Status != domain.PendingEvent {
        return nil, errs.Conflict(fmt.Sprintf(
            "Unable to fulfill load request %s.  Verify configuration of Demand, Defect, and Effort systems.", projectName))
    }

    s.log.Info().Str("project", projectName).Int64("event", ev.ID).Str("type", eventType).Msg("event created")
    s.ingestions.Add(1)
    go func() { // NOW GO DO WORK
        defer s.ingestions.Done()
        s.ProcessProjectData(project, ev)
    }()
    return ev, nil
}

// MostRecentEvent returns the event with the latest startTime, or nil when the
// project has no events. Ties resolve to the last of the stable ascending sort.
func (s *Service) MostRecentEvent(ctx context.Context, projectName string) (*domain.Event, error) {
    events, err := s.store.ListEvents(ctx, projectName)
    if err != nil { return nil, err }
    if len(events) == 0 { return nil, nil }
    sort.SliceStable(events, func(i, j int) bool { return events[i].StartTime.Before(events[j].StartTime) })
    return &events[len(events)-1], nil
}

func (s *Service) ListEvents(ctx context.Context, projectName string) ([]domain.Event, error) {
    events, err := s.store.ListEvents(ctx, projectName)
    if err != nil {
        s.log.Error().Err(err).Str("project", projectName).Msg("listEvents failed")
        return nil, errs.Internal("Unable to find events for " + projectName)
    }
    if len(events) == 0 {
        return nil, errs.NotFound("Unable to find events for " + projectName)
    }
    return events, nil
}

func (s *Service) GetEvent(ctx context.Context, projectName string, id int64) (*domain.Event, error) {
    ev, err := s.store.GetEvent(ctx, projectName, id)
    if err != nil {
        s.log.Error().Err(err).Str("project", projectName).Int64("event", id).Msg("getEvent failed")
        return nil, errs.Internal("Unable to find events for " + projectName)
    }
    if ev == nil {
        return nil, errs.NotFound(fmt.Sprintf("Unable to find event [%d]", id))
    }
    return ev, nil
}

// sinceFrom derives the incremental cursor from the previous event: its end
// time truncated to a date-only string, because the downstream query accepts
// date granularity only.
func sinceFrom(prior *domain.Event) string {
    if prior.EndTime == nil { return "" }
    return prior.EndTime.UTC().Format(domain.DBDateFormat)
}

// configureEventSystems applies the pessimistic default: the event is FAILED
// with an explanatory note, then flipped to PENDING as soon as any subsystem
// block turns out to be configured. A partially configured project still
// ingests the subsystems it has.
func configureEventSystems(project *domain.Project, ev *domain.Event) {
    now := time.Now().UTC()
    ev.Status = domain.FailedEvent
    ev.EndTime = &now
    ev.Note = noSystemsNote
    markPending := func() {
        ev.Status = domain.PendingEvent
        ev.EndTime = nil
        ev.Note = ""
    }
    if project.Demand.Configured() { ev.Demand = &domain.SystemStatus{}; markPending() }
    if project.Defect.Configured() { ev.Defect = &domain.SystemStatus{}; markPending() }
    if project.Effort.Configured() { ev.Effort = &domain.SystemStatus{}; markPending() }
}

func projectLockKey(name string) int64 {
    h := fnv.New64a()
    _, _ = h.Write([]byte("event:" + name))
    return int64(h.Sum64())
}
