package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/loanops/commsync/internal/config"
)

func adminRouter(adminKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Auth: config.AuthConfig{AdminKey: adminKey}}
	r := gin.New()
	r.GET("/v1/history", AdminMiddleware(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func getWithKey(router *gin.Engine, key string) int {
	req := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	if key != "" {
		req.Header.Set(HeaderAdminKey, key)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Code
}

func TestAdminMiddleware(t *testing.T) {
	router := adminRouter("secret")

	if code := getWithKey(router, ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", code)
	}
	if code := getWithKey(router, "wrong"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", code)
	}
	if code := getWithKey(router, "secret"); code != http.StatusOK {
		t.Fatalf("expected 200 with valid key, got %d", code)
	}
}

func TestAdminMiddlewareDisabledWithoutKey(t *testing.T) {
	router := adminRouter("")
	if code := getWithKey(router, "anything"); code != http.StatusNotFound {
		t.Fatalf("expected 404 when admin endpoints disabled, got %d", code)
	}
}
