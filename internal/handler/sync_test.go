package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loanops/commsync/internal/middleware"
	"github.com/loanops/commsync/internal/pkg/apperrors"
	"github.com/loanops/commsync/internal/service"
)

func adminRouterFor(register func(*gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	register(r)
	return r
}

func TestSyncTriggerErrorRendersThroughMiddleware(t *testing.T) {
	// Not started: the first trigger is accepted into the buffer, the second
	// is rejected and must surface as an AppError response.
	loop := service.NewLoop(nil, nil, time.Hour, nil)
	router := adminRouterFor(func(r *gin.Engine) {
		r.POST("/v1/sync", NewSyncHandler(loop).Trigger)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sync", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 on first trigger, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sync", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on pending trigger, got %d", rec.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["code"] != string(apperrors.ErrInvalidRequest) {
		t.Fatalf("expected INVALID_REQUEST body, got %v", resp)
	}
}

func TestHistoryBadLimitRendersThroughMiddleware(t *testing.T) {
	history := service.NewHistoryService(nil, 0, 0)
	defer history.Close()
	router := adminRouterFor(func(r *gin.Engine) {
		r.GET("/v1/history", NewHistoryHandler(history).List)
	})

	for _, limit := range []string{"abc", "0", "-5"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/history?limit="+limit, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("limit=%s: expected 400, got %d", limit, rec.Code)
		}
	}
}
