package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/proctor-backend/internal/model"
)

func TestBindDomainTags(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Setup()

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"valid", `{"course_id":"6f1c1d2e-8a44-4a53-9d0f-2b7a3b1c9e11","difficulty":"hard","text":"2+2?","options":{"A":"3","B":"4","C":"5","D":"6"},"correct_option":"B"}`, ""},
		{"bad difficulty", `{"course_id":"6f1c1d2e-8a44-4a53-9d0f-2b7a3b1c9e11","difficulty":"extreme","text":"2+2?","correct_option":"B"}`, "difficulty"},
		{"bad label", `{"course_id":"6f1c1d2e-8a44-4a53-9d0f-2b7a3b1c9e11","difficulty":"easy","text":"2+2?","correct_option":"E"}`, "correct_option"},
		{"malformed json", `{"difficulty":`, "detail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req model.CreateQuestionRequest
			fields := Bind(c, &req)

			if tt.wantField == "" {
				if fields != nil {
					t.Fatalf("unexpected errors: %v", fields)
				}
				return
			}
			if _, ok := fields[tt.wantField]; !ok {
				t.Fatalf("errors %v missing field %q", fields, tt.wantField)
			}
		})
	}
}
