package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRequestIDRouter(capture *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		*capture = RequestIDFrom(c)
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var seen string
	r := newRequestIDRouter(&seen)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	header := w.Header().Get(RequestIDHeader)
	if header == "" {
		t.Fatal("response is missing the request id header")
	}
	if seen != header {
		t.Errorf("handler saw id %q, response header %q", seen, header)
	}
}

func TestRequestID_PropagatesIncomingHeader(t *testing.T) {
	var seen string
	r := newRequestIDRouter(&seen)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "req-42" {
		t.Errorf("response header = %q, want req-42", got)
	}
	if seen != "req-42" {
		t.Errorf("RequestIDFrom = %q, want req-42", seen)
	}
}

func TestRequestIDFrom_WithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if got := RequestIDFrom(c); got != "" {
		t.Errorf("RequestIDFrom without middleware = %q, want empty", got)
	}
}
