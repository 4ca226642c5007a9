package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tutorly-backend/internal/handlers"
	"tutorly-backend/internal/logger"
	"tutorly-backend/internal/middleware"
	"tutorly-backend/internal/websocket"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	jwtAuth := middleware.NewJWTAuth("secret")
	limiter := middleware.NewRateLimiter(10, time.Minute)
	t.Cleanup(limiter.Stop)

	h := Handlers{
		Profile:   handlers.NewProfileHandler(nil),
		Plan:      handlers.NewPlanHandler(nil, nil, nil, time.UTC),
		Tutor:     handlers.NewTutorHandler(nil),
		Dashboard: handlers.NewDashboardHandler(nil, nil, nil, time.UTC),
	}
	hub := websocket.NewHub(nil, jwtAuth, "http://localhost:9002", logger.Nop())
	return New(jwtAuth, h, limiter, hub, "http://localhost:9002")
}

func TestRouter_Health(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a request id on every response")
	}
}

func TestRouter_RequiresAuth(t *testing.T) {
	r := newTestRouter(t)

	routes := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/profile"},
		{http.MethodPut, "/api/v1/profile"},
		{http.MethodPost, "/api/v1/plans"},
		{http.MethodGet, "/api/v1/plans/latest"},
		{http.MethodGet, "/api/v1/plans/latest/next-session"},
		{http.MethodPost, "/api/v1/tutor/conversations"},
		{http.MethodGet, "/api/v1/tutor/conversations/8d1f5c52-3f0e-4a4e-9a57-5a4cbf0b6c11"},
		{http.MethodPost, "/api/v1/tutor/conversations/8d1f5c52-3f0e-4a4e-9a57-5a4cbf0b6c11/turns"},
		{http.MethodGet, "/api/v1/dashboard/progress"},
		{http.MethodPost, "/api/v1/progress/import"},
		{http.MethodGet, "/api/v1/ws"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(rt.method, rt.path, nil))
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
		})
	}
}
