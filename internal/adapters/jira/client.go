/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
    "context"
    "encoding/json"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/buildit/illuminate/internal/config"
    "github.com/buildit/illuminate/internal/domain"
    "github.com/buildit/illuminate/internal/errs"
    "github.com/rs/zerolog"
)

const fetchFailedMessage = "Error retrieving stories from Jira"

// fixed selectors sent with every search page
var (
    searchExpand = []string{"changelog", "history", "items"}
    searchFields = []string{"issuetype", "created", "updated", "status", "key", "summary"}
)

type Client struct {
    http     *http.Client
    log      zerolog.Logger
    pageSize int
    maxPages int
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{
        http:     &http.Client{Timeout: cfg.HTTPTimeout},
        log:      log,
        pageSize: cfg.PageSize,
        maxPages: cfg.MaxPages,
    }
}

func (c *Client) searchURL(src domain.SystemConfig, issueType, since string, startAt int) string {
    jql := "project=" + src.Project + " AND issueType=" + issueType
    if since != "" { jql += " AND updated>=" + since }
    q := url.Values{}
    q.Set("jql", jql)
    q.Set("startAt", strconv.Itoa(startAt))
    q.Set("maxResults", strconv.Itoa(c.pageSize))
    q.Set("expand", strings.Join(searchExpand, ","))
    q.Set("fields", strings.Join(searchFields, ","))
    return strings.TrimRight(src.URL, "/") + "/search?" + q.Encode()
}

// FetchAllIssues drains the paginated search endpoint: each page starts at the
// number of issues accumulated so far, and the loop continues while the last
// page returned at least one issue and the accumulated count is below the
// server-reported total. A server that reports a total but stops returning
// issues terminates the loop instead of spinning. Any non-success response or
// transport failure rejects the whole fetch; nothing partial is returned.
func (c *Client) FetchAllIssues(ctx context.Context, src domain.SystemConfig, issueType, since string) ([]RawIssue, error) {
    issues := []RawIssue{}
    for page := 0; ; page++ {
        if page >= c.maxPages {
            c.log.Error().Str("project", src.Project).Int("pages", page).Msg("jira: page cap exceeded")
            return nil, errs.Upstream(http.StatusBadGateway, fetchFailedMessage)
        }
        result, err := c.fetchPage(ctx, src, issueType, since, len(issues))
        if err != nil { return nil, err }
        c.log.Debug().Str("project", src.Project).Int("startAt", result.StartAt).
            Int("count", len(result.Issues)).Int("total", result.Total).Msg("jira: page read")
        issues = append(issues, result.Issues...)
        if len(result.Issues) == 0 || len(issues) >= result.Total { break }
    }
    c.log.Info().Str("project", src.Project).Int("total", len(issues)).Msg("jira: fetch complete")
    return issues, nil
}

func (c *Client) fetchPage(ctx context.Context, src domain.SystemConfig, issueType, since string, startAt int) (*searchPage, error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(src, issueType, since, startAt), nil)
    if err != nil { return nil, errs.Upstream(http.StatusBadGateway, fetchFailedMessage) }
    if src.UserData != "" { req.Header.Set("Authorization", "Basic "+src.UserData) }
    resp, err := c.http.Do(req)
    if err != nil {
        c.log.Error().Err(err).Str("project", src.Project).Msg("jira: request failed")
        return nil, errs.Upstream(http.StatusBadGateway, fetchFailedMessage)
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        c.log.Error().Int("status", resp.StatusCode).Str("project", src.Project).Msg("jira: non-success response")
        return nil, errs.Upstream(resp.StatusCode, fetchFailedMessage)
    }
    var result searchPage
    if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
        return nil, errs.Upstream(http.StatusBadGateway, fetchFailedMessage)
    }
    return &result, nil
}

// TransformRawToCommon converts raw issues into the common schema: one open
// interval starting at issue creation with initialStatus, closed and reopened
// at every status transition in the changelog, with the still-open final
// interval carrying the issue's current status.
func TransformRawToCommon(issues []RawIssue, initialStatus string) []domain.CommonDemandEntry {
    common := make([]domain.CommonDemandEntry, 0, len(issues))
    for _, issue := range issues {
        entry := domain.CommonDemandEntry{ID: issue.ID}
        current := domain.DemandHistoryEntry{Status: initialStatus, StartDate: dateOnly(issue.Fields.Created)}
        for _, h := range issue.Changelog.Histories {
            for _, item := range h.Items {
                if item.Field != "status" { continue }
                current.ChangeDate = dateOnly(h.Created)
                entry.History = append(entry.History, current)
                current = domain.DemandHistoryEntry{Status: item.ToString, StartDate: dateOnly(h.Created)}
            }
        }
        entry.History = append(entry.History, current)
        common = append(common, entry)
    }
    return common
}

func dateOnly(v string) string {
    layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-0700", "2006-01-02T15:04:05-0700", "2006-01-02"}
    for _, l := range layouts {
        // format in the timestamp's own offset: converting to UTC would push
        // a late-evening timestamp onto the next calendar date
        if t, err := time.Parse(l, v); err == nil { return t.Format(domain.DBDateFormat) }
    }
    if len(v) >= 10 { return v[:10] }
    return v
}
