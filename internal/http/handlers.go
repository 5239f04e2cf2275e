/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "fmt"
    "net/http"
    "strconv"
    "strings"

    "github.com/buildit/illuminate/internal/config"
    "github.com/buildit/illuminate/internal/domain"
    "github.com/buildit/illuminate/internal/errs"
    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"
)

type service interface {
    SaveProject(ctx context.Context, p domain.Project) (*domain.Project, error)
    GetProject(ctx context.Context, name string) (*domain.Project, error)
    CreateEvent(ctx context.Context, project, eventType string) (*domain.Event, error)
    ListEvents(ctx context.Context, project string) ([]domain.Event, error)
    GetEvent(ctx context.Context, project string, id int64) (*domain.Event, error)
    Forecast(ctx context.Context, project string) ([]domain.ForecastResult, error)
}

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc any) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc.(service)}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) SaveProject(c *gin.Context) {
    var p domain.Project
    if err := c.ShouldBindJSON(&p); err != nil {
        c.JSON(errs.Body(errs.Validation("Unable to parse project document.")))
        return
    }
    saved, err := h.svc.SaveProject(c.Request.Context(), p)
    if err != nil {
        c.JSON(errs.Body(err))
        return
    }
    c.JSON(http.StatusCreated, gin.H{"url": h.baseURL(c) + "/v1/project/" + saved.Name})
}

func (h *Handlers) GetProject(c *gin.Context) {
    project, err := h.svc.GetProject(c.Request.Context(), c.Param("name"))
    if err != nil {
        c.JSON(errs.Body(err))
        return
    }
    c.JSON(http.StatusOK, project)
}

// CreateEvent accepts the run and answers with the event's location; the
// ingestion itself continues after this response is written.
func (h *Handlers) CreateEvent(c *gin.Context) {
    name := c.Param("name")
    ev, err := h.svc.CreateEvent(c.Request.Context(), name, c.Query("type"))
    if err != nil {
        c.JSON(errs.Body(err))
        return
    }
    c.JSON(http.StatusCreated, gin.H{
        "url": fmt.Sprintf("%s/v1/project/%s/event/%d", h.baseURL(c), name, ev.ID),
    })
}

func (h *Handlers) ListEvents(c *gin.Context) {
    events, err := h.svc.ListEvents(c.Request.Context(), c.Param("name"))
    if err != nil {
        c.JSON(errs.Body(err))
        return
    }
    c.JSON(http.StatusOK, events)
}

func (h *Handlers) GetEvent(c *gin.Context) {
    id, err := strconv.ParseInt(c.Param("id"), 10, 64)
    if err != nil {
        c.JSON(errs.Body(errs.Validation("Event id must be numeric.")))
        return
    }
    ev, err := h.svc.GetEvent(c.Request.Context(), c.Param("name"), id)
    if err != nil {
        c.JSON(errs.Body(err))
        return
    }
    c.JSON(http.StatusOK, ev)
}

func (h *Handlers) RagStatus(c *gin.Context) {
    results, err := h.svc.Forecast(c.Request.Context(), c.Param("name"))
    if err != nil {
        c.JSON(errs.Body(err))
        return
    }
    c.JSON(http.StatusOK, results)
}

func (h *Handlers) baseURL(c *gin.Context) string {
    if h.cfg.PublicBaseURL != "" { return strings.TrimRight(h.cfg.PublicBaseURL, "/") }
    scheme := "http"
    if c.Request.TLS != nil { scheme = "https" }
    return scheme + "://" + c.Request.Host
}
