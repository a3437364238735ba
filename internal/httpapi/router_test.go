package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorcenter/internal/metrics"
	"tutorcenter/internal/tutoring"
)

type brokenStore struct {
	*tutoring.MemoryStore
}

func (brokenStore) ListTeachers(context.Context) ([]tutoring.Teacher, error) {
	return nil, errors.New("connection reset")
}

func TestInternalErrorsAreHidden(t *testing.T) {
	s := newTestServerWithStore(t, brokenStore{tutoring.NewMemoryStore()})
	s.run(t, []httpTest{
		{name: "list teachers", method: http.MethodGet, path: "/v1/teachers", wantCode: http.StatusInternalServerError,
			wantData: marshalObj(t, httpErr{Error: "Internal Server Error"})},
	})
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, func(c *Config) {
		c.Health = map[string]HealthCheck{
			"db":    func(context.Context) bool { return true },
			"redis": func(context.Context) bool { return false },
		}
	})
	s.run(t, []httpTest{
		{name: "degraded", method: http.MethodGet, path: "/healthz", wantCode: http.StatusServiceUnavailable,
			wantData: []byte(`{"status":"degraded","db":true,"redis":false}`)},
	})

	ok := newTestServer(t)
	ok.run(t, []httpTest{
		{name: "no checks", method: http.MethodGet, path: "/healthz", wantCode: http.StatusOK,
			wantData: []byte(`{"status":"ok"}`)},
	})
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.Staff.Required = true })
	s.run(t, []httpTest{
		{name: "no token", method: http.MethodGet, path: "/v1/teachers", wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "missing bearer token"})},
		{name: "token", method: http.MethodGet, path: "/v1/teachers", token: getToken(t, "staff-1"),
			wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "health stays open", method: http.MethodGet, path: "/healthz", wantCode: http.StatusOK},
	})
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := newTestServer(t, func(c *Config) {
		c.Requests = m
		c.Gatherer = reg
	})
	stu, cl := s.seed(t)

	req, rec := newRequest(http.MethodPost, "/v1/payments/enroll-and-pay",
		marshalObj(t, map[string]string{"studentId": stu.ID, "classId": cl.ID, "month": "2024-06"}))
	s.do(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req, rec = newRequest(http.MethodGet, "/metrics", nil)
	s.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `tutorcenter_http_request_duration_seconds_count{code="201",method="POST",route="/v1/payments/enroll-and-pay"} 1`), body)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.RateLimitPerMin = 2 })
	codes := make([]int, 3)
	for i := range codes {
		req, rec := newRequest(http.MethodGet, "/healthz", nil)
		codes[i] = s.do(req, rec).Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
