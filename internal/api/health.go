package api

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pinger is the readiness probe surface of a database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueStats reports the depth of the notification task queue.
type QueueStats interface {
	Len(ctx context.Context) (int64, error)
}

type HealthHandler struct {
	pgPool  Pinger
	redis   *redis.Client
	queue   QueueStats
	env     string
	version string
}

func NewHealthHandler(pgPool Pinger, redis *redis.Client, queue QueueStats, env, version string) *HealthHandler {
	return &HealthHandler{
		pgPool:  pgPool,
		redis:   redis,
		queue:   queue,
		env:     env,
		version: version,
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status           string            `json:"status"`
	Version          string            `json:"version,omitempty"`
	Env              string            `json:"env,omitempty"`
	Dependencies     map[string]string `json:"dependencies"`
	NotifyQueueDepth *int64            `json:"notify_queue_depth,omitempty"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	}
	writeJSON(w, http.StatusOK, resp)
}

// Readiness pings Postgres and Redis with per-dependency timeouts. Postgres
// down means the API cannot serve; Redis down degrades bookings (no locks,
// no notification queue) but reads still work.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string)
	status := "ok"

	pgCtx, pgCancel := context.WithTimeout(ctx, 1*time.Second)
	err := h.pgPool.Ping(pgCtx)
	pgCancel()
	if err != nil {
		deps["postgres"] = "down"
		status = "error"
	} else {
		deps["postgres"] = "ok"
	}

	resp := ReadinessResponse{
		Version: h.version,
		Env:     h.env,
	}

	redisCtx, redisCancel := context.WithTimeout(ctx, 1*time.Second)
	err = h.redis.Ping(redisCtx).Err()
	redisCancel()
	if err != nil {
		deps["redis"] = "down"
		if status == "ok" {
			status = "degraded"
		} else {
			status = "error"
		}
	} else {
		deps["redis"] = "ok"
		if h.queue != nil {
			qCtx, qCancel := context.WithTimeout(ctx, 1*time.Second)
			depth, qErr := h.queue.Len(qCtx)
			qCancel()
			if qErr == nil {
				resp.NotifyQueueDepth = &depth
			}
		}
	}

	resp.Status = status
	resp.Dependencies = deps

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}
