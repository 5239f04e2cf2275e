/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package harvest

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/buildit/illuminate/internal/config"
    "github.com/buildit/illuminate/internal/domain"
    "github.com/buildit/illuminate/internal/errs"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func testClient(baseURL string) (*Client, domain.SystemConfig) {
    c := NewClient(config.Config{HTTPTimeout: 5 * time.Second}, zerolog.Nop())
    src := domain.SystemConfig{Source: "Harvest", URL: baseURL, Project: "42", UserData: "dXNlcjpwYXNz"}
    return c, src
}

func TestFetchTimeEntries(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        assert.Equal(t, "/projects/42/entries", r.URL.Path)
        assert.Equal(t, "2015-03-26+00:00", r.URL.Query().Get("updated_since"))
        assert.Equal(t, "Basic dXNlcjpwYXNz", r.Header.Get("Authorization"))
        w.Header().Set("Content-Type", "application/json")
        _, _ = w.Write([]byte(`[
            {"day_entry":{"spent_at":"2015-10-21","task":"Delivery","hours":8}},
            {"day_entry":{"spent_at":"2015-10-22","task":"Design","hours":6}}
        ]`))
    }))
    defer srv.Close()

    c, src := testClient(srv.URL)
    entries, err := c.FetchTimeEntries(context.Background(), src, "2015-03-26")
    require.NoError(t, err)
    assert.Equal(t, []domain.EffortEntry{
        {Day: "2015-10-21", Role: "Delivery", Effort: 8},
        {Day: "2015-10-22", Role: "Design", Effort: 6},
    }, entries)
}

func TestFetchTimeEntriesFullPullOmitsCursor(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        _, present := r.URL.Query()["updated_since"]
        assert.False(t, present)
        _, _ = w.Write([]byte(`[]`))
    }))
    defer srv.Close()

    c, src := testClient(srv.URL)
    entries, err := c.FetchTimeEntries(context.Background(), src, "")
    require.NoError(t, err)
    assert.Empty(t, entries)
}

func TestFetchTimeEntriesUpstreamFailure(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, "nope", http.StatusUnauthorized)
    }))
    defer srv.Close()

    c, src := testClient(srv.URL)
    _, err := c.FetchTimeEntries(context.Background(), src, "2015-03-26")
    var e *errs.Error
    require.ErrorAs(t, err, &e)
    assert.Equal(t, http.StatusUnauthorized, e.StatusCode)
    assert.Equal(t, "Error retrieving effort data from Harvest", e.Message)
}
