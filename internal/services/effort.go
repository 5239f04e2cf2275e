/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "sort"

    "github.com/buildit/illuminate/internal/domain"
)

// TransformEffortToSummary groups time entries by day and sums hours per role,
// one record per day in ascending date order.
func TransformEffortToSummary(entries []domain.EffortEntry) []domain.EffortSummary {
    byDay := map[string]map[string]int{}
    for _, e := range entries {
        if byDay[e.Day] == nil { byDay[e.Day] = map[string]int{} }
        byDay[e.Day][e.Role] += e.Effort
    }
    days := make([]string, 0, len(byDay))
    for d := range byDay { days = append(days, d) }
    sort.Strings(days)

    out := make([]domain.EffortSummary, 0, len(days))
    for _, d := range days {
        out = append(out, domain.EffortSummary{ProjectDate: d, Activity: byDay[d]})
    }
    return out
}
