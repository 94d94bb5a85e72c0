package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRateLimitEventuallyDenies(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware())
	r.GET("/", func(ctx *gin.Context) { ctx.String(http.StatusOK, "ok") })

	var denied bool
	for i := 0; i < 200; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.7:12345"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if i == 0 && rec.Code != http.StatusOK {
			t.Fatalf("first request denied: %d", rec.Code)
		}
		if rec.Code == http.StatusTooManyRequests {
			denied = true
			break
		}
	}
	if !denied {
		t.Error("burst of requests from one IP was never rate limited")
	}
}

func TestRateLimitIsPerIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware())
	r.GET("/", func(ctx *gin.Context) { ctx.String(http.StatusOK, "ok") })

	// Exhaust one IP's bucket.
	for i := 0; i < 200; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.9:4321"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
	}

	// A different IP still gets through.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.50:4321"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("fresh IP denied: %d", rec.Code)
	}
}
