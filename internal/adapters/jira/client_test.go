/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strconv"
    "testing"
    "time"

    "github.com/buildit/illuminate/internal/config"
    "github.com/buildit/illuminate/internal/domain"
    "github.com/buildit/illuminate/internal/errs"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func testClient(baseURL string, maxPages int) (*Client, domain.SystemConfig) {
    cfg := config.Config{PageSize: 50, MaxPages: maxPages, HTTPTimeout: 5 * time.Second}
    c := NewClient(cfg, zerolog.Nop())
    src := domain.SystemConfig{Source: "Jira", URL: baseURL, Project: "TEST", UserData: "dXNlcjpwYXNz"}
    return c, src
}

func issuePage(startAt, count, total int) searchPage {
    page := searchPage{StartAt: startAt, MaxResults: 50, Total: total}
    for i := 0; i < count; i++ {
        page.Issues = append(page.Issues, RawIssue{ID: strconv.Itoa(1000 + startAt + i)})
    }
    return page
}

func TestFetchAllIssuesDrainsEveryPage(t *testing.T) {
    const total = 355
    requests := 0
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        requests++
        assert.Equal(t, "Basic dXNlcjpwYXNz", r.Header.Get("Authorization"))
        startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
        count := total - startAt
        if count > 50 { count = 50 }
        _ = json.NewEncoder(w).Encode(issuePage(startAt, count, total))
    }))
    defer srv.Close()

    c, src := testClient(srv.URL, 1000)
    issues, err := c.FetchAllIssues(context.Background(), src, domain.JiraDemandType, "")
    require.NoError(t, err)
    assert.Len(t, issues, total)
    assert.Equal(t, 8, requests) // ceil(355/50)
    assert.Equal(t, "1000", issues[0].ID)
    assert.Equal(t, "1354", issues[total-1].ID)
}

func TestFetchAllIssuesStopsOnEmptyPage(t *testing.T) {
    // the server promises 100 but dries up after one page; the loop must
    // terminate instead of spinning on the stale total
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
        if startAt == 0 {
            _ = json.NewEncoder(w).Encode(issuePage(0, 50, 100))
            return
        }
        _ = json.NewEncoder(w).Encode(issuePage(startAt, 0, 100))
    }))
    defer srv.Close()

    c, src := testClient(srv.URL, 1000)
    issues, err := c.FetchAllIssues(context.Background(), src, domain.JiraDemandType, "")
    require.NoError(t, err)
    assert.Len(t, issues, 50)
}

func TestFetchAllIssuesUpstreamFailure(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, "boom", http.StatusServiceUnavailable)
    }))
    defer srv.Close()

    c, src := testClient(srv.URL, 1000)
    _, err := c.FetchAllIssues(context.Background(), src, domain.JiraDemandType, "")
    var e *errs.Error
    require.ErrorAs(t, err, &e)
    assert.Equal(t, http.StatusServiceUnavailable, e.StatusCode)
    assert.Equal(t, "Error retrieving stories from Jira", e.Message)
}

func TestFetchAllIssuesPageCap(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        // always claims more work than it hands out, one issue at a time
        startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
        _ = json.NewEncoder(w).Encode(issuePage(startAt, 1, 1<<30))
    }))
    defer srv.Close()

    c, src := testClient(srv.URL, 3)
    _, err := c.FetchAllIssues(context.Background(), src, domain.JiraDemandType, "")
    var e *errs.Error
    require.ErrorAs(t, err, &e)
    assert.Equal(t, http.StatusBadGateway, e.StatusCode)
}

func TestSearchURLCarriesCursor(t *testing.T) {
    var gotJQL string
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        gotJQL = r.URL.Query().Get("jql")
        _ = json.NewEncoder(w).Encode(issuePage(0, 0, 0))
    }))
    defer srv.Close()

    c, src := testClient(srv.URL, 10)
    _, err := c.FetchAllIssues(context.Background(), src, domain.JiraDefectType, "2015-03-26")
    require.NoError(t, err)
    assert.Equal(t, "project=TEST AND issueType=Bug AND updated>=2015-03-26", gotJQL)
}

func changeAt(created, from, to string) History {
    return History{Created: created, Items: HistoryItems{{
        Field: "status", FieldType: "jira", FromString: from, ToString: to,
    }}}
}

func TestTransformRawToCommon(t *testing.T) {
    issue := RawIssue{
        ID: "1000",
        Fields: Fields{
            IssueType: NamedField{Name: "Story"},
            Created:   "2015-03-01T10:00:00.000-0000",
            Status:    NamedField{Name: "Done"},
        },
        Changelog: Changelog{Histories: []History{
            changeAt("2015-03-03T09:00:00.000-0000", "Backlog", "Selected for development"),
            {Created: "2015-03-04T09:00:00.000-0000", Items: HistoryItems{{Field: "assignee", ToString: "somebody"}}},
            changeAt("2015-03-05T09:00:00.000-0000", "Selected for development", "In Progress"),
            changeAt("2015-03-09T09:00:00.000-0000", "In Progress", "In Review"),
            changeAt("2015-03-12T09:00:00.000-0000", "In Review", "Done"),
        }},
    }

    common := TransformRawToCommon([]RawIssue{issue}, domain.JiraInitialStatus)
    require.Len(t, common, 1)
    assert.Equal(t, "1000", common[0].ID)

    // 4 status changes become 5 chronological intervals; non-status items are ignored
    h := common[0].History
    require.Len(t, h, 5)
    assert.Equal(t, domain.DemandHistoryEntry{Status: "Backlog", StartDate: "2015-03-01", ChangeDate: "2015-03-03"}, h[0])
    assert.Equal(t, domain.DemandHistoryEntry{Status: "Selected for development", StartDate: "2015-03-03", ChangeDate: "2015-03-05"}, h[1])
    assert.Equal(t, domain.DemandHistoryEntry{Status: "In Progress", StartDate: "2015-03-05", ChangeDate: "2015-03-09"}, h[2])
    assert.Equal(t, domain.DemandHistoryEntry{Status: "In Review", StartDate: "2015-03-09", ChangeDate: "2015-03-12"}, h[3])
    assert.Equal(t, domain.DemandHistoryEntry{Status: "Done", StartDate: "2015-03-12"}, h[4])
}

func TestTransformRawToCommonNoChangelog(t *testing.T) {
    issue := RawIssue{ID: "1001", Fields: Fields{Created: "2015-03-01T10:00:00.000-0000"}}
    common := TransformRawToCommon([]RawIssue{issue}, domain.JiraInitialStatus)
    require.Len(t, common, 1)
    require.Len(t, common[0].History, 1)
    assert.Equal(t, domain.DemandHistoryEntry{Status: "Backlog", StartDate: "2015-03-01"}, common[0].History[0])
}

func TestHistoryItemsAcceptsFlattenedObject(t *testing.T) {
    asArray := []byte(`{"created":"2015-03-03T09:00:00.000-0000","items":[{"field":"status","toString":"Done"}]}`)
    asObject := []byte(`{"created":"2015-03-03T09:00:00.000-0000","items":{"field":"status","toString":"Done"}}`)

    var fromArray, fromObject History
    require.NoError(t, json.Unmarshal(asArray, &fromArray))
    require.NoError(t, json.Unmarshal(asObject, &fromObject))
    assert.Equal(t, fromArray, fromObject)
    require.Len(t, fromObject.Items, 1)
    assert.Equal(t, "Done", fromObject.Items[0].ToString)
}

func TestHistoryItemsRejectsGarbage(t *testing.T) {
    var items HistoryItems
    err := json.Unmarshal([]byte(`"not-items"`), &items)
    assert.Error(t, err)
}

func TestDateOnlyFallsBackToPrefix(t *testing.T) {
    assert.Equal(t, "2015-03-26", dateOnly("2015-03-26T12:00:00.000-0000"))
    assert.Equal(t, "2015-03-26", dateOnly("2015-03-26 some unparseable tail"))
    assert.Equal(t, "short", dateOnly("short"))
}

func TestDateOnlyKeepsTimestampOffset(t *testing.T) {
    // 23:27 at -0600 is already the next day in UTC; the stored date must
    // stay on the local calendar date the transition happened
    assert.Equal(t, "2016-03-22", dateOnly("2016-03-22T23:27:04.000-0600"))
    assert.Equal(t, "2016-03-23", dateOnly("2016-03-23T00:15:00.000+0900"))
}
