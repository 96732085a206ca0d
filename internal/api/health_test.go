package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/camhien7804/Nha-Khoa-OU/internal/redis"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestReadinessReportsQueueDepth(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	queue := redisclient.NewRedisTaskQueue(rdb, "")

	for i := 0; i < 2; i++ {
		task := redisclient.Task{Type: redisclient.TaskInvoiceEmail, AppointmentID: uuid.New()}
		require.NoError(t, queue.Enqueue(context.Background(), task))
	}

	h := NewHealthHandler(fakePinger{}, rdb, queue, "test", "1.0.0")
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Dependencies["postgres"])
	assert.Equal(t, "ok", resp.Dependencies["redis"])
	require.NotNil(t, resp.NotifyQueueDepth)
	assert.Equal(t, int64(2), *resp.NotifyQueueDepth)
}

func TestReadinessPostgresDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	h := NewHealthHandler(fakePinger{err: errors.New("pool closed")}, rdb, nil, "test", "1.0.0")
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "down", resp.Dependencies["postgres"])
}

func TestReadinessRedisDownIsDegraded(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	queue := redisclient.NewRedisTaskQueue(rdb, "")
	mr.Close()

	h := NewHealthHandler(fakePinger{}, rdb, queue, "test", "1.0.0")
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "down", resp.Dependencies["redis"])
	assert.Nil(t, resp.NotifyQueueDepth)
}
