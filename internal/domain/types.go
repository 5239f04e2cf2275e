package domain

import "time"

// Event types
const (
    LoadEvent   = "LOAD"
    UpdateEvent = "UPDATE"
)

// Event statuses
const (
    PendingEvent = "PENDING"
    SuccessEvent = "SUCCESS"
    FailedEvent  = "FAILED"
)

// RAG statuses
const (
    RagOK      = "OK"
    RagWarning = "WARNING"
    RagError   = "ERROR"
)

// Subsystem names; also the collection qualifier in the store
const (
    DemandSystem = "demand"
    DefectSystem = "defect"
    EffortSystem = "effort"
)

// Jira status handling
const (
    JiraComplete      = "Done"
    JiraInitialStatus = "Backlog"
    JiraDemandType    = "Story"
    JiraDefectType    = "Bug"
)

// DBDateFormat is the date-only layout stored in summary records and `since` cursors
const DBDateFormat = "2006-01-02"

// SystemConfig is one subsystem block on a project (demand, defect, or effort)
type SystemConfig struct {
    Source     string   `json:"source"`
    URL        string   `json:"url"`
    Project    string   `json:"project"`
    AuthPolicy string   `json:"authPolicy"`
    UserData   string   `json:"userData"`
    Role       []string `json:"role,omitempty"`
}

// Configured reports whether the block is present and usable
func (c *SystemConfig) Configured() bool {
    return c != nil && c.Source != ""
}

type Project struct {
    ID          int64         `json:"id"`
    Name        string        `json:"name"`
    Program     string        `json:"program,omitempty"`
    Portfolio   string        `json:"portfolio,omitempty"`
    Description string        `json:"description,omitempty"`
    StartDate   *time.Time    `json:"startDate"`
    EndDate     *time.Time    `json:"endDate"`
    Demand      *SystemConfig `json:"demand,omitempty"`
    Defect      *SystemConfig `json:"defect,omitempty"`
    Effort      *SystemConfig `json:"effort,omitempty"`
}

// SystemStatus is the per-subsystem work marker attached to an event while
// that subsystem is pending, and filled in when its ingestion completes.
type SystemStatus struct {
    Status  string     `json:"status,omitempty"`
    EndTime *time.Time `json:"endTime,omitempty"`
    Note    string     `json:"note,omitempty"`
}

// Event is one ingestion run for a project. At most one event per project may
// be active (EndTime == nil) at a time.
type Event struct {
    ID        int64         `json:"id"`
    Type      string        `json:"type"`
    Status    string        `json:"status"`
    StartTime time.Time     `json:"startTime"`
    EndTime   *time.Time    `json:"endTime"`
    Since     string        `json:"since,omitempty"`
    Note      string        `json:"note,omitempty"`
    Demand    *SystemStatus `json:"demand,omitempty"`
    Defect    *SystemStatus `json:"defect,omitempty"`
    Effort    *SystemStatus `json:"effort,omitempty"`
}

func NewEvent(eventType string) *Event {
    return &Event{Type: eventType, Status: PendingEvent, StartTime: time.Now().UTC()}
}

// Active reports whether the event is still in flight
func (e *Event) Active() bool { return e.EndTime == nil }

// DemandHistoryEntry is one status interval of an issue: the issue held Status
// from StartDate until ChangeDate (empty for the still-open final interval).
type DemandHistoryEntry struct {
    Status     string `json:"statusValue"`
    StartDate  string `json:"startDate"`
    ChangeDate string `json:"changeDate,omitempty"`
}

// CommonDemandEntry is the normalized form of one external issue: its stable
// identifier plus the chronologically ordered status intervals. The final
// interval's status is the issue's current status.
type CommonDemandEntry struct {
    ID      string               `json:"_id"`
    History []DemandHistoryEntry `json:"history"`
}

// EffortEntry is the normalized form of one time-tracking record
type EffortEntry struct {
    Day    string `json:"day"`
    Role   string `json:"role"`
    Effort int    `json:"effort"`
}

// SummaryRecord is the per-date snapshot of issue counts by status category,
// the regression input.
type SummaryRecord struct {
    ProjectDate string         `json:"projectDate"`
    Status      map[string]int `json:"status"`
}

// EffortSummary is the per-date effort rollup by role
type EffortSummary struct {
    ProjectDate string         `json:"projectDate"`
    Activity    map[string]int `json:"activity"`
}

// ForecastResult is a RAG-classified end date projection
type ForecastResult struct {
    Name      string `json:"name"`
    Expected  string `json:"expected"`
    Actual    string `json:"actual"`
    RagStatus string `json:"ragStatus"`
}
