/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "strings"

    "github.com/buildit/illuminate/internal/domain"
    "github.com/buildit/illuminate/internal/errs"
)

func (s *Service) SaveProject(ctx context.Context, p domain.Project) (*domain.Project, error) {
    if strings.TrimSpace(p.Name) == "" {
        return nil, errs.Validation("Project name must be specified.")
    }
    id, err := s.store.UpsertProject(ctx, p)
    if err != nil {
        s.log.Error().Err(err).Str("project", p.Name).Msg("saveProject failed")
        return nil, errs.Internal("Unable to save project information for " + p.Name)
    }
    p.ID = id
    return &p, nil
}

func (s *Service) GetProject(ctx context.Context, name string) (*domain.Project, error) {
    project, err := s.store.GetProjectByName(ctx, name)
    if err != nil {
        s.log.Error().Err(err).Str("project", name).Msg("getProject failed")
        return nil, errs.Internal("Unable to find project information for " + name)
    }
    if project == nil {
        return nil, errs.NotFound("Unable to find project information for " + name)
    }
    return project, nil
}

// Forecast runs every registered predictor over the project's demand summary.
// An empty summary yields an empty result list, not an error; callers decide
// how to present "nothing to predict".
func (s *Service) Forecast(ctx context.Context, name string) ([]domain.ForecastResult, error) {
    project, err := s.GetProject(ctx, name)
    if err != nil { return nil, err }
    series, err := s.store.GetSummary(ctx, name, domain.DemandSystem)
    if err != nil {
        s.log.Error().Err(err).Str("project", name).Msg("forecast: summary read failed")
        return nil, errs.Internal("Unable to produce a forecast for " + name)
    }
    results := []domain.ForecastResult{}
    if r := Predict(project, series); r != nil { results = append(results, *r) }
    return results, nil
}
