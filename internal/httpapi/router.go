// Package httpapi serves the tutoring center's JSON API over gin.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tutorcenter/internal/auth"
	"tutorcenter/internal/httpmiddleware"
	"tutorcenter/internal/media"
	"tutorcenter/internal/queue"
	"tutorcenter/internal/tutoring"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) bool

// Config wires the router's dependencies. Queue, Requests, Gatherer and
// Health are optional.
type Config struct {
	Service         *tutoring.Service
	Media           media.Store
	Queue           queue.Queue
	Logger          *zap.Logger
	Requests        httpmiddleware.RequestObserver
	Gatherer        prometheus.Gatherer
	Staff           auth.StaffOptions
	RateLimitPerMin int
	UploadDir       string
	UploadMaxBytes  int64
	Health          map[string]HealthCheck
}

// Handler holds the dependencies of the route handlers.
type Handler struct {
	svc       *tutoring.Service
	media     media.Store
	queue     queue.Queue
	log       *zap.Logger
	maxUpload int64
	health    map[string]HealthCheck
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(cfg Config) *gin.Engine {
	setupValidator()
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxUpload := cfg.UploadMaxBytes
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}
	h := &Handler{
		svc:       cfg.Service,
		media:     cfg.Media,
		queue:     cfg.Queue,
		log:       log,
		maxUpload: maxUpload,
		health:    cfg.Health,
	}

	r := gin.New()
	r.MaxMultipartMemory = maxUpload
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.Logger(log, "/healthz", "/metrics"))
	if cfg.Requests != nil {
		r.Use(httpmiddleware.Metrics(cfg.Requests))
	}
	r.Use(httpmiddleware.CORS())
	r.Use(httpmiddleware.SecurityHeaders())
	if cfg.RateLimitPerMin > 0 {
		r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())
	}

	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/healthz", h.healthz)
	if cfg.UploadDir != "" {
		r.Static("/uploads", cfg.UploadDir)
	}

	v1 := r.Group("/v1", auth.Staff(cfg.Staff))

	students := v1.Group("/students")
	students.POST("", h.createStudent)
	students.GET("", h.listStudents)
	students.GET("/lookup", h.lookupStudent)
	students.GET("/:id", h.getStudent)
	students.GET("/:id/qr", h.studentQR)
	students.PUT("/:id", h.updateStudent)
	students.DELETE("/:id", h.deleteStudent)
	students.POST("/:id/enroll", h.enroll)
	students.POST("/:id/unenroll", h.unenroll)

	teachers := v1.Group("/teachers")
	teachers.POST("", h.createTeacher)
	teachers.GET("", h.listTeachers)
	teachers.GET("/:id", h.getTeacher)
	teachers.PUT("/:id", h.updateTeacher)
	teachers.DELETE("/:id", h.deleteTeacher)

	classes := v1.Group("/classes")
	classes.POST("", h.createClass)
	classes.GET("", h.listClasses)
	classes.GET("/:id", h.getClass)
	classes.PUT("/:id", h.updateClass)
	classes.DELETE("/:id", h.deleteClass)

	payments := v1.Group("/payments")
	payments.POST("", h.recordPayment)
	payments.POST("/enroll-and-pay", h.enrollAndPay)
	payments.GET("", h.listPayments)
	payments.GET("/student/:id", h.studentPayments)

	attendance := v1.Group("/attendance")
	attendance.POST("/scan", h.markAttendance)
	attendance.GET("/student/:id", h.studentAttendance)
	attendance.GET("/class/:id/today", h.classAttendanceToday)
	attendance.POST("/class/:id/mark-absentees", h.markAbsentees)

	return r
}

func (h *Handler) healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	status := http.StatusOK
	for name, check := range h.health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// actorID returns the id of the staff member behind the request.
func actorID(c *gin.Context) string {
	if a, ok := auth.ActorFrom(c.Request.Context()); ok {
		return a.ID
	}
	return ""
}
