package jira

import (
    "bytes"
    "encoding/json"
)

type searchPage struct {
    StartAt    int        `json:"startAt"`
    MaxResults int        `json:"maxResults"`
    Total      int        `json:"total"`
    Issues     []RawIssue `json:"issues"`
}

// RawIssue is the Jira-native issue shape, ingested verbatim then normalized
type RawIssue struct {
    ID        string    `json:"id"`
    Key       string    `json:"key"`
    Fields    Fields    `json:"fields"`
    Changelog Changelog `json:"changelog"`
}

type Fields struct {
    IssueType NamedField `json:"issuetype"`
    Created   string     `json:"created"`
    Updated   string     `json:"updated"`
    Status    NamedField `json:"status"`
    Summary   string     `json:"summary"`
}

type NamedField struct {
    Name string `json:"name"`
}

type Changelog struct {
    StartAt   int       `json:"startAt"`
    Total     int       `json:"total"`
    Histories []History `json:"histories"`
}

type History struct {
    ID      string       `json:"id"`
    Created string       `json:"created"`
    Items   HistoryItems `json:"items"`
}

type HistoryItem struct {
    Field      string `json:"field"`
    FieldType  string `json:"fieldtype"`
    From       string `json:"from"`
    FromString string `json:"fromString"`
    To         string `json:"to"`
    ToString   string `json:"toString"`
}

// HistoryItems accepts both shapes the source emits for a history's items: a
// JSON array, or a single-element collection already flattened to a bare
// object. Both decode to the same slice, so downstream code sees one shape.
type HistoryItems []HistoryItem

func (h *HistoryItems) UnmarshalJSON(data []byte) error {
    trimmed := bytes.TrimSpace(data)
    if len(trimmed) > 0 && trimmed[0] == '{' {
        var one HistoryItem
        if err := json.Unmarshal(trimmed, &one); err != nil { return err }
        *h = HistoryItems{one}
        return nil
    }
    var many []HistoryItem
    if err := json.Unmarshal(trimmed, &many); err != nil { return err }
    *h = many
    return nil
}
