/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "math"
    "time"

    "github.com/buildit/illuminate/internal/domain"
    "gonum.org/v1/gonum/stat"
)

const (
    predictorName      = "Backlog Regression End Date Predictor"
    forecastDateFormat = "Jan 02, 2006"
)

// Predict fits a least-squares line to the backlog size (the count of issues
// not yet in the completed status) over the window where completed work
// exists, and projects the date the line crosses zero. The crossing is
// classified against the project's target end date: before it is OK, after it
// is ERROR, and anything indeterminate (no trend, flat fit, no target, or a
// crossing in the past before the epoch) stays WARNING rather than guessing.
// Returns nil when the summary series is empty.
func Predict(project *domain.Project, series []domain.SummaryRecord) *domain.ForecastResult {
    if len(series) == 0 { return nil }

    result := &domain.ForecastResult{Name: predictorName, RagStatus: domain.RagWarning}
    var target time.Time
    haveTarget := project.EndDate != nil
    if haveTarget {
        target = project.EndDate.UTC()
        result.Expected = target.Format(forecastDateFormat)
    }

    start, end, ok := completedRange(series)
    if !ok { return result } // nothing completed yet, no trend to fit

    var xs, ys []float64
    for _, rec := range series {
        d, err := time.Parse(domain.DBDateFormat, rec.ProjectDate)
        if err != nil { continue }
        if d.Before(start) || d.After(end) { continue }
        notDone := 0
        for status, count := range rec.Status {
            if status != domain.JiraComplete { notDone += count }
        }
        // zero-backlog samples drag the fit toward a spuriously early crossing
        if notDone == 0 { continue }
        xs = append(xs, float64(d.Unix()))
        ys = append(ys, float64(notDone))
    }
    if len(xs) < 2 { return result }

    intercept, slope := stat.LinearRegression(xs, ys, nil, false)
    xZero := -intercept / slope
    if math.IsNaN(xZero) || math.IsInf(xZero, 0) { return result } // flat or degenerate fit

    estimated := time.Unix(int64(xZero), 0).UTC()
    result.Actual = estimated.Format(forecastDateFormat)
    switch {
    case xZero < 0:
        result.RagStatus = domain.RagError
    case haveTarget && estimated.After(target):
        result.RagStatus = domain.RagError
    case haveTarget && estimated.Before(target):
        result.RagStatus = domain.RagOK
    }
    return result
}

// completedRange bounds the fit window: first and last dates with any
// completed count, the upper bound clipped to tomorrow so stray future-dated
// samples cannot stretch the window.
func completedRange(series []domain.SummaryRecord) (time.Time, time.Time, bool) {
    var min, max time.Time
    found := false
    for _, rec := range series {
        if rec.Status[domain.JiraComplete] == 0 { continue }
        d, err := time.Parse(domain.DBDateFormat, rec.ProjectDate)
        if err != nil { continue }
        if !found {
            min, max, found = d, d, true
            continue
        }
        if d.Before(min) { min = d }
        if d.After(max) { max = d }
    }
    if !found { return time.Time{}, time.Time{}, false }
    tomorrow := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
    if max.After(tomorrow) { max = tomorrow }
    return min, max, true
}
