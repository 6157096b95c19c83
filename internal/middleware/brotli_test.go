package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

func newBrotliRouter(body string) *gin.Engine {
	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{Quality: 4, MinLength: 64}))
	r.GET("/", func(c *gin.Context) {
		// Two writes so the tail arrives after compression has started.
		c.Writer.WriteString(body[:len(body)/2])
		c.Writer.WriteString(body[len(body)/2:])
	})
	return r
}

func TestBrotli(t *testing.T) {
	long := strings.Repeat("exam session payload ", 50)
	short := "ok"

	tests := []struct {
		name       string
		body       string
		headers    map[string]string
		compressed bool
	}{
		{"large body", long, map[string]string{"Accept-Encoding": "gzip, br"}, true},
		{"below min length", short + short, map[string]string{"Accept-Encoding": "br"}, false},
		{"client without br", long, map[string]string{"Accept-Encoding": "gzip"}, false},
		{"websocket upgrade", long, map[string]string{"Accept-Encoding": "br", "Upgrade": "websocket"}, false},
		{"event stream", long, map[string]string{"Accept-Encoding": "br", "Accept": "text/event-stream"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := perform(newBrotliRouter(tt.body), req)

			isBr := w.Header().Get("Content-Encoding") == "br"
			if isBr != tt.compressed {
				t.Fatalf("Content-Encoding br = %v, want %v", isBr, tt.compressed)
			}

			var got []byte
			if isBr {
				var err error
				got, err = io.ReadAll(brotli.NewReader(w.Body))
				if err != nil {
					t.Fatalf("decode: %v", err)
				}
			} else {
				got = w.Body.Bytes()
			}
			if string(got) != tt.body {
				t.Fatalf("body mismatch: got %d bytes, want %d", len(got), len(tt.body))
			}
		})
	}
}
