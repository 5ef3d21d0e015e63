package http

import (
	"context"
	"database/sql"
	"net/http"
)

type brokerHealth interface {
	Healthy() bool
}

type cacheHealth interface {
	Healthy(ctx context.Context) bool
}

type processorHealth interface {
	Running() bool
}

type HealthHandler struct {
	db        *sql.DB
	broker    brokerHealth
	cache     cacheHealth
	processor processorHealth
}

func NewHealthHandler(db *sql.DB, broker brokerHealth, cache cacheHealth, processor processorHealth) *HealthHandler {
	return &HealthHandler{db: db, broker: broker, cache: cache, processor: processor}
}

type componentHealth struct {
	Database  bool `json:"database"`
	Broker    bool `json:"broker"`
	Cache     bool `json:"cache"`
	Processor bool `json:"processor"`
}

func (h *HealthHandler) check(ctx context.Context) (bool, componentHealth) {
	components := componentHealth{
		Database:  h.db.PingContext(ctx) == nil,
		Broker:    h.broker.Healthy(),
		Cache:     h.cache.Healthy(ctx),
		Processor: h.processor.Running(),
	}
	// A degraded cache does not make the service unhealthy: reads fall back
	// to the database.
	healthy := components.Database && components.Broker && components.Processor
	return healthy, components
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	healthy, components := h.check(r.Context())
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, Response{
		Success: healthy,
		Data: map[string]any{
			"healthy":    healthy,
			"components": components,
		},
	})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	healthy, components := h.check(r.Context())
	ready := healthy && components.Cache
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, Response{
		Success: ready,
		Data: map[string]any{
			"ready":      ready,
			"components": components,
		},
	})
}
