package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestFail_WritesEnvelopeAndAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reached := false
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		Fail(c, http.StatusTeapot, "SOME_CODE", "nope")
	}, func(c *gin.Context) {
		reached = true
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", w.Code)
	}
	if reached {
		t.Fatalf("expected chain to be aborted")
	}

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Error.Code != "SOME_CODE" || body.Error.Message != "nope" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestOK_WrapsData(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		OK(c, http.StatusOK, gin.H{"id": "1"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Body.String() != `{"success":true,"data":{"id":"1"}}` {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}
