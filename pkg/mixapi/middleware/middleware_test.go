package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/txn2/pimixer/pkg/mixapi/types"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func performRequest(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) types.Response {
	t.Helper()
	var resp types.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestRecovery(t *testing.T) {
	r := setupRouter()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := performRequest(r, "GET", "/panic")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	resp := decode(t, w)
	if resp.Success || resp.Error == nil || resp.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("Unexpected envelope %+v", resp)
	}
}

func TestRequestLogger(t *testing.T) {
	r := setupRouter()
	r.Use(RequestLogger())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := performRequest(r, "GET", "/test?x=1")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestCORS(t *testing.T) {
	r := setupRouter()
	r.Use(CORS())
	r.PUT("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := performRequest(r, "PUT", "/test")
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected Access-Control-Allow-Origin '*', got '%s'", w.Header().Get("Access-Control-Allow-Origin"))
	}

	w = performRequest(r, "OPTIONS", "/test")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected preflight status %d, got %d", http.StatusNoContent, w.Code)
	}
}

func TestNoCache(t *testing.T) {
	r := setupRouter()
	r.Use(NoCache())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := performRequest(r, "GET", "/test")
	if w.Header().Get("Pragma") != "no-cache" {
		t.Error("Expected Pragma no-cache")
	}
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		handler    gin.HandlerFunc
		wantStatus int
		wantCode   string
	}{
		{
			name: "plain error",
			handler: func(c *gin.Context) {
				_ = c.Error(fmt.Errorf("broken"))
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "REQUEST_ERROR",
		},
		{
			name: "bind error",
			handler: func(c *gin.Context) {
				_ = c.Error(fmt.Errorf("bad body")).SetType(gin.ErrorTypeBind)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter()
			r.Use(ErrorHandler())
			r.GET("/test", tt.handler)

			w := performRequest(r, "GET", "/test")
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := decode(t, w); resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %+v", tt.wantCode, resp.Error)
			}
		})
	}
}

func TestErrorHandler_LeavesWrittenResponses(t *testing.T) {
	r := setupRouter()
	r.Use(ErrorHandler())
	r.GET("/test", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("noted"))
		c.String(http.StatusTeapot, "already answered")
	})

	w := performRequest(r, "GET", "/test")
	if w.Code != http.StatusTeapot || w.Body.String() != "already answered" {
		t.Errorf("Expected handler response untouched, got %d %q", w.Code, w.Body.String())
	}
}
