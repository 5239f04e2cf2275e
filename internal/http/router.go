/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "github.com/buildit/illuminate/internal/config"
    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc any) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context) {
        c.Next()
        log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
    })

    h := NewHandlers(cfg, log, svc)

    r.GET("/healthz", h.Healthz)

    v1 := r.Group("/v1")
    v1.POST("/project", h.SaveProject)
    v1.GET("/project/:name", h.GetProject)
    v1.GET("/project/:name/event", h.ListEvents)
    v1.POST("/project/:name/event", h.CreateEvent)
    v1.GET("/project/:name/event/:id", h.GetEvent)
    v1.GET("/project/:name/ragStatus", h.RagStatus)

    return r
}
