package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"enrollment-portal/internal/apiclient"
	"enrollment-portal/internal/mutation"
	"enrollment-portal/internal/notify"
	"enrollment-portal/internal/querycache"
	"enrollment-portal/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves the subset of the REST API the tests touch
type fakeBackend struct {
	mu          sync.Mutex
	enrollments map[string]gin.H
	requests    []string
}

func (b *fakeBackend) router() *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		b.mu.Lock()
		b.requests = append(b.requests, c.Request.Method+" "+c.Request.URL.Path)
		b.mu.Unlock()
		c.Next()
	})
	r.GET("/enrollments", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := []gin.H{}
		for _, e := range b.enrollments {
			list = append(list, e)
		}
		c.JSON(http.StatusOK, list)
	})
	r.GET("/enrollments/:id", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		e, ok := b.enrollments[c.Param("id")]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Enrollment not found"})
			return
		}
		c.JSON(http.StatusOK, e)
	})
	r.POST("/enrollments/:id/cancel", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.enrollments[c.Param("id")]["status"] = "CANCELLED"
		c.JSON(http.StatusOK, gin.H{"message": "cancelled", "refund_amount": "50.00"})
	})
	r.POST("/enrollments/:id/pause", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Cannot pause: billing already suspended"})
	})
	return r
}

type testServer struct {
	handler *Handler
	router  *gin.Engine
	backend *fakeBackend
	toasts  *notify.Center
	store   *querycache.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := &fakeBackend{enrollments: map[string]gin.H{
		"e1": {"id": "e1", "child_id": "c1", "class_id": "cl1", "status": "ACTIVE", "final_price": 100},
	}}
	srv := httptest.NewServer(backend.router())
	t.Cleanup(srv.Close)

	client := apiclient.NewClient(srv.URL, 2*time.Second)
	store := querycache.NewStore(querycache.Config{StaleTime: time.Minute})
	toasts := notify.NewCenter(10)
	orch := mutation.NewOrchestrator(store, toasts)

	h := NewHandler(service.NewEnrollmentService(client, orch), service.NewBadgeService(client, orch), toasts)
	router := gin.New()
	h.SetupRoutes(router)
	return &testServer{handler: h, router: router, backend: backend, toasts: toasts, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestReadinessReportsFailedChecks(t *testing.T) {
	s := newTestServer(t)
	s.handler.AddReadinessCheck("redis", func(ctx context.Context) error { return errors.New("connection refused") })

	w := s.do(t, http.MethodGet, "/ready", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestGetEnrollmentEnvelope(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/enrollments/e1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Data struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
		IsLoading bool   `json:"is_loading"`
		Error     string `json:"error"`
	}
	decode(t, w, &env)
	assert.Equal(t, "e1", env.Data.ID)
	assert.Equal(t, "ACTIVE", env.Data.Status)
	assert.False(t, env.IsLoading)
	assert.Empty(t, env.Error)

	s.do(t, http.MethodGet, "/api/v1/enrollments/e1", nil)
	assert.Len(t, s.backend.requests, 1, "second read served from cache")
}

func TestGetMissingEnrollmentReturnsErrorAsData(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/enrollments/nope", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var env map[string]any
	decode(t, w, &env)
	assert.Equal(t, "Enrollment not found", env["error"])
	assert.Empty(t, s.toasts.List(), "read errors are not toasted")
}

func TestCancelThroughBFF(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/v1/enrollments/e1", nil)

	w := s.do(t, http.MethodPost, "/api/v1/enrollments/e1/cancel", map[string]string{"reason": "moving"})
	require.Equal(t, http.StatusOK, w.Code)

	toasts := s.toasts.List()
	require.Len(t, toasts, 1)
	assert.Equal(t, notify.LevelSuccess, toasts[0].Level)
	assert.Equal(t, "Enrollment cancelled. Refund of $50 will be processed.", toasts[0].Message)
	assert.True(t, s.store.IsInvalidated("enrollments:detail:e1"))

	w = s.do(t, http.MethodGet, "/api/v1/mutations/cancel", nil)
	var st mutation.Status
	decode(t, w, &st)
	assert.Equal(t, "cancel", st.Name)
	assert.True(t, st.HasResult)
	assert.False(t, st.Pending)
}

func TestPauseFailureSurfacesServerMessage(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/v1/enrollments/e1", nil)

	w := s.do(t, http.MethodPost, "/api/v1/enrollments/e1/pause", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Cannot pause: billing already suspended")

	w = s.do(t, http.MethodGet, "/api/v1/enrollments/e1", nil)
	assert.Contains(t, w.Body.String(), `"status":"ACTIVE"`, "optimistic pause rolled back")

	w = s.do(t, http.MethodGet, "/api/v1/notifications?drain=true", nil)
	var toasts []notify.Toast
	decode(t, w, &toasts)
	require.Len(t, toasts, 1)
	assert.Equal(t, notify.LevelError, toasts[0].Level)
	assert.Empty(t, s.toasts.List())

	w = s.do(t, http.MethodPost, "/api/v1/mutations/pause/reset", nil)
	var st mutation.Status
	decode(t, w, &st)
	assert.Empty(t, st.Error)
}

func TestCreateValidationIsRejectedWithoutBackendCall(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/enrollments", map[string]string{"class_id": "cl1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "child_id is required")
	assert.Empty(t, s.backend.requests)
}

func TestUnknownMutation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/mutations/explode", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListMutations(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/mutations", nil)

	var statuses []mutation.Status
	decode(t, w, &statuses)
	require.Len(t, statuses, 7)
	assert.Equal(t, "create", statuses[0].Name)
	assert.Equal(t, "revoke_badge", statuses[6].Name)
}
