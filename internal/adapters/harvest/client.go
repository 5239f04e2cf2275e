/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package harvest

import (
    "context"
    "encoding/json"
    "net/http"
    "net/url"
    "strings"

    "github.com/buildit/illuminate/internal/config"
    "github.com/buildit/illuminate/internal/domain"
    "github.com/buildit/illuminate/internal/errs"
    "github.com/rs/zerolog"
)

const fetchFailedMessage = "Error retrieving effort data from Harvest"

type Client struct {
    http *http.Client
    log  zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{http: &http.Client{Timeout: cfg.HTTPTimeout}, log: log}
}

type dayEntry struct {
    SpentAt string  `json:"spent_at"`
    Task    string  `json:"task"`
    Hours   float64 `json:"hours"`
}

type entryEnvelope struct {
    DayEntry dayEntry `json:"day_entry"`
}

// FetchTimeEntries reads all time entries for the configured project, updated
// since the given date cursor (empty for a full pull). Harvest does not
// paginate this endpoint; failures reject the whole fetch like the Jira loop.
func (c *Client) FetchTimeEntries(ctx context.Context, src domain.SystemConfig, since string) ([]domain.EffortEntry, error) {
    q := url.Values{}
    if since != "" {
        // Harvest wants an explicit offset on the cursor where Jira does not
        q.Set("updated_since", since+"+00:00")
    }
    u := strings.TrimRight(src.URL, "/") + "/projects/" + url.PathEscape(src.Project) + "/entries"
    if len(q) > 0 { u += "?" + q.Encode() }

    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
    if err != nil { return nil, errs.Upstream(http.StatusBadGateway, fetchFailedMessage) }
    req.Header.Set("Accept", "application/json")
    if src.UserData != "" { req.Header.Set("Authorization", "Basic "+src.UserData) }
    resp, err := c.http.Do(req)
    if err != nil {
        c.log.Error().Err(err).Str("project", src.Project).Msg("harvest: request failed")
        return nil, errs.Upstream(http.StatusBadGateway, fetchFailedMessage)
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        c.log.Error().Int("status", resp.StatusCode).Str("project", src.Project).Msg("harvest: non-success response")
        return nil, errs.Upstream(resp.StatusCode, fetchFailedMessage)
    }
    var envelopes []entryEnvelope
    if err := json.NewDecoder(resp.Body).Decode(&envelopes); err != nil {
        return nil, errs.Upstream(http.StatusBadGateway, fetchFailedMessage)
    }
    entries := make([]domain.EffortEntry, 0, len(envelopes))
    for _, e := range envelopes {
        entries = append(entries, domain.EffortEntry{Day: e.DayEntry.SpentAt, Role: e.DayEntry.Task, Effort: int(e.DayEntry.Hours)})
    }
    c.log.Info().Str("project", src.Project).Int("entries", len(entries)).Msg("harvest: fetch complete")
    return entries, nil
}
