/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "sort"

    "github.com/buildit/illuminate/internal/domain"
)

// TransformCommonToSummary rolls per-issue status history into one record per
// sample date: how many issues sat in each status on that day. Sample dates
// are the union of interval start dates, so every transition produces a
// sample. On any sampled date each issue contributes to exactly one status
// bucket, or to none when the date precedes the issue's creation, so the
// bucket total never exceeds the issue count.
func TransformCommonToSummary(entries []domain.CommonDemandEntry) []domain.SummaryRecord {
    dateSet := map[string]struct{}{}
    for _, e := range entries {
        for _, h := range e.History {
            if h.StartDate != "" { dateSet[h.StartDate] = struct{}{} }
        }
    }
    dates := make([]string, 0, len(dateSet))
    for d := range dateSet { dates = append(dates, d) }
    sort.Strings(dates)

    out := make([]domain.SummaryRecord, 0, len(dates))
    for _, d := range dates {
        counts := map[string]int{}
        for _, e := range entries {
            if st := statusOn(e, d); st != "" { counts[st]++ }
        }
        out = append(out, domain.SummaryRecord{ProjectDate: d, Status: counts})
    }
    return out
}

// statusOn picks the interval containing the date: closed intervals are
// half-open [start, change), the final interval is open-ended. Dates are
// ISO day strings, so plain string comparison orders them.
func statusOn(entry domain.CommonDemandEntry, date string) string {
    for _, h := range entry.History {
        if date < h.StartDate { continue }
        if h.ChangeDate == "" || date < h.ChangeDate { return h.Status }
    }
    return ""
}
