package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"planledger/internal/log"
)

func TestHandlerTagsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	cfg := log.DefaultConfig()
	cfg.Output = &buf
	cfg.Format = "json"
	cfg.Component = log.ComponentTrace
	m := NewMiddleware(log.New(cfg))

	var seen string
	r := gin.New()
	r.Use(m.Handler())
	r.GET("/x", func(c *gin.Context) {
		seen = GetRequestID(c.Request.Context())
		if log.FromContext(c.Request.Context()).Component() != log.ComponentTrace {
			t.Error("request logger missing from context")
		}
		c.Status(http.StatusTeapot)
	})

	tests := []struct {
		name   string
		header string
	}{
		{name: "generated id", header: ""},
		{name: "client id kept", header: "abc-123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			req := httptest.NewRequest(http.MethodGet, "/x?q=1", nil)
			if tt.header != "" {
				req.Header.Set(HeaderRequestID, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(HeaderRequestID)
			if got == "" || got != seen {
				t.Fatalf("response id %q, handler saw %q", got, seen)
			}
			if tt.header != "" && got != tt.header {
				t.Fatalf("id = %q, want %q", got, tt.header)
			}
			if tt.header == "" && !strings.HasPrefix(got, "req_") {
				t.Fatalf("generated id %q", got)
			}
			out := buf.String()
			if !strings.Contains(out, `"status_code":418`) || !strings.Contains(out, `"request_id":"`+got+`"`) {
				t.Fatalf("access log = %s", out)
			}
		})
	}

	if m.GetMetrics().TotalRequests != 2 {
		t.Fatalf("TotalRequests = %d", m.GetMetrics().TotalRequests)
	}
}
