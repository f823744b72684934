package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"enrollment-portal/internal/apiclient"
	"enrollment-portal/internal/models"
	"enrollment-portal/internal/mutation"
	"enrollment-portal/internal/notify"
	"enrollment-portal/internal/querycache"
	"enrollment-portal/internal/service"
	"enrollment-portal/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether a dependency is usable
type ReadinessCheck func(ctx context.Context) error

// Handler contains HTTP handlers
type Handler struct {
	enrollments *service.EnrollmentService
	badges      *service.BadgeService
	toasts      *notify.Center
	mutations   map[string]mutation.Handle
	checks      map[string]ReadinessCheck
	logger      *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(enrollments *service.EnrollmentService, badges *service.BadgeService, toasts *notify.Center) *Handler {
	h := &Handler{
		enrollments: enrollments,
		badges:      badges,
		toasts:      toasts,
		mutations:   make(map[string]mutation.Handle),
		checks:      make(map[string]ReadinessCheck),
		logger:      util.GetLogger(),
	}
	for _, m := range []mutation.Handle{
		enrollments.Create,
		enrollments.Cancel,
		enrollments.Pause,
		enrollments.Resume,
		enrollments.Transfer,
		badges.Award,
		badges.Revoke,
	} {
		h.mutations[m.Name()] = m
	}
	return h
}

// AddReadinessCheck registers a dependency consulted by /ready
func (h *Handler) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/enrollments", h.listEnrollments)
		v1.GET("/enrollments/:id", h.getEnrollment)
		v1.GET("/enrollments/:id/refund-estimate", h.refundEstimate)
		v1.POST("/enrollments", h.createEnrollment)
		v1.POST("/enrollments/:id/cancel", h.cancelEnrollment)
		v1.POST("/enrollments/:id/pause", h.pauseEnrollment)
		v1.POST("/enrollments/:id/resume", h.resumeEnrollment)
		v1.POST("/enrollments/:id/transfer", h.transferEnrollment)

		v1.GET("/classes/:id", h.getClass)
		v1.GET("/orders", h.listOrders)
		v1.GET("/children/:id/enrollments", h.childEnrollments)
		v1.GET("/children/:id/badges", h.childBadges)
		v1.POST("/badges/award", h.awardBadge)
		v1.POST("/children/:id/badges/:award_id/revoke", h.revokeBadge)

		v1.GET("/mutations", h.listMutations)
		v1.GET("/mutations/:name", h.getMutation)
		v1.POST("/mutations/:name/reset", h.resetMutation)

		v1.GET("/notifications", h.listNotifications)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck runs every registered dependency check
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// queryEnvelope is the wire form of a query result
type queryEnvelope struct {
	Data       any        `json:"data"`
	IsLoading  bool       `json:"is_loading"`
	IsFetching bool       `json:"is_fetching"`
	Error      string     `json:"error,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

func writeQuery[T any](c *gin.Context, res querycache.Result[T]) {
	env := queryEnvelope{
		IsLoading:  res.IsLoading,
		IsFetching: res.IsFetching,
	}
	if res.HasData {
		env.Data = res.Data
	}
	if !res.UpdatedAt.IsZero() {
		updated := res.UpdatedAt
		env.UpdatedAt = &updated
	}

	status := http.StatusOK
	if res.Err != nil {
		env.Error = readErrorMessage(res.Err)
		if !res.HasData {
			status = errorStatus(res.Err)
		}
	}
	c.JSON(status, env)
}

func (h *Handler) listEnrollments(c *gin.Context) {
	filter := models.EnrollmentFilter{
		ChildID: c.Query("child_id"),
		ClassID: c.Query("class_id"),
		Status:  models.EnrollmentStatus(c.Query("status")),
	}
	q := h.enrollments.EnrollmentsQuery(filter)
	if c.Query("refetch") == "true" {
		writeQuery(c, q.Refetch(c.Request.Context()))
		return
	}
	writeQuery(c, q.Load(c.Request.Context()))
}

func (h *Handler) getEnrollment(c *gin.Context) {
	q := h.enrollments.EnrollmentQuery(c.Param("id"))
	if c.Query("refetch") == "true" {
		writeQuery(c, q.Refetch(c.Request.Context()))
		return
	}
	writeQuery(c, q.Load(c.Request.Context()))
}

func (h *Handler) refundEstimate(c *gin.Context) {
	est, err := h.enrollments.EstimateCancellationRefund(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": readErrorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, est)
}

func (h *Handler) getClass(c *gin.Context) {
	writeQuery(c, h.enrollments.ClassQuery(c.Param("id")).Load(c.Request.Context()))
}

func (h *Handler) listOrders(c *gin.Context) {
	writeQuery(c, h.enrollments.OrdersQuery().Load(c.Request.Context()))
}

func (h *Handler) childEnrollments(c *gin.Context) {
	writeQuery(c, h.enrollments.ChildEnrollmentsQuery(c.Param("id")).Load(c.Request.Context()))
}

func (h *Handler) childBadges(c *gin.Context) {
	writeQuery(c, h.badges.ChildBadgesQuery(c.Param("id")).Load(c.Request.Context()))
}

// createEnrollment handles enrollment creation
func (h *Handler) createEnrollment(c *gin.Context) {
	var req models.CreateEnrollmentRequest
	if !bindBody(c, &req) {
		return
	}

	out, err := h.enrollments.Create.Mutate(c.Request.Context(), req)
	if err != nil {
		h.mutationFailed(c, h.enrollments.Create, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) cancelEnrollment(c *gin.Context) {
	var req models.CancelEnrollmentRequest
	if !bindOptionalBody(c, &req) {
		return
	}
	req.EnrollmentID = c.Param("id")

	out, err := h.enrollments.Cancel.Mutate(c.Request.Context(), req)
	if err != nil {
		h.mutationFailed(c, h.enrollments.Cancel, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) pauseEnrollment(c *gin.Context) {
	var req models.PauseEnrollmentRequest
	if !bindOptionalBody(c, &req) {
		return
	}
	req.EnrollmentID = c.Param("id")

	out, err := h.enrollments.Pause.Mutate(c.Request.Context(), req)
	if err != nil {
		h.mutationFailed(c, h.enrollments.Pause, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) resumeEnrollment(c *gin.Context) {
	req := models.ResumeEnrollmentRequest{EnrollmentID: c.Param("id")}

	out, err := h.enrollments.Resume.Mutate(c.Request.Context(), req)
	if err != nil {
		h.mutationFailed(c, h.enrollments.Resume, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) transferEnrollment(c *gin.Context) {
	var req models.TransferEnrollmentRequest
	if !bindBody(c, &req) {
		return
	}
	req.EnrollmentID = c.Param("id")

	out, err := h.enrollments.Transfer.Mutate(c.Request.Context(), req)
	if err != nil {
		h.mutationFailed(c, h.enrollments.Transfer, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) awardBadge(c *gin.Context) {
	var req models.AwardBadgeRequest
	if !bindBody(c, &req) {
		return
	}

	out, err := h.badges.Award.Mutate(c.Request.Context(), req)
	if err != nil {
		h.mutationFailed(c, h.badges.Award, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) revokeBadge(c *gin.Context) {
	var req models.RevokeBadgeRequest
	if !bindOptionalBody(c, &req) {
		return
	}
	req.ChildID = c.Param("id")
	req.AwardID = c.Param("award_id")

	out, err := h.badges.Revoke.Mutate(c.Request.Context(), req)
	if err != nil {
		h.mutationFailed(c, h.badges.Revoke, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) listMutations(c *gin.Context) {
	statuses := make([]mutation.Status, 0, len(h.mutations))
	for _, name := range mutationOrder {
		if m, ok := h.mutations[name]; ok {
			statuses = append(statuses, m.Status())
		}
	}
	c.JSON(http.StatusOK, statuses)
}

var mutationOrder = []string{"create", "cancel", "pause", "resume", "transfer", "award_badge", "revoke_badge"}

func (h *Handler) getMutation(c *gin.Context) {
	m, ok := h.mutations[c.Param("name")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown mutation"})
		return
	}
	c.JSON(http.StatusOK, m.Status())
}

func (h *Handler) resetMutation(c *gin.Context) {
	m, ok := h.mutations[c.Param("name")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown mutation"})
		return
	}
	m.Reset()
	c.JSON(http.StatusOK, m.Status())
}

// listNotifications returns retained toasts; drain=true also clears them
func (h *Handler) listNotifications(c *gin.Context) {
	drain, _ := strconv.ParseBool(c.DefaultQuery("drain", "false"))
	toasts := h.toasts.List()
	if drain {
		toasts = h.toasts.Drain()
	}
	if toasts == nil {
		toasts = []notify.Toast{}
	}
	c.JSON(http.StatusOK, toasts)
}

type messager interface {
	Message(err error) string
}

// mutationFailed writes the error the mutation already toasted
func (h *Handler) mutationFailed(c *gin.Context, m messager, err error) {
	h.logger.Debug("Mutation request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(errorStatus(err), gin.H{"error": m.Message(err)})
}

func bindBody(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// bindOptionalBody accepts an empty body for endpoints whose fields are all optional
func bindOptionalBody(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindBody(c, dst)
}

func errorStatus(err error) int {
	var apiErr *apiclient.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.StatusCode
	case errors.Is(err, mutation.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, mutation.ErrTerminalStatus):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func readErrorMessage(err error) string {
	return mutation.UserMessage(err, "Failed to load data")
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
