package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	SetLogger(quietLogger())
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func doJSON(t *testing.T, r http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRespondWithDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		check  func(t *testing.T, body map[string]interface{})
	}{
		{
			name:   "validation carries the field",
			err:    apperr.Validation("quantity", "must be greater than zero"),
			status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "quantity", body["field"])
			},
		},
		{
			name:   "stale transition asks for a refresh",
			err:    &apperr.InvalidTransitionError{OrderID: "o1", From: "finalizado", Event: "accept"},
			status: http.StatusConflict,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, true, body["refresh"])
			},
		},
		{
			name:   "wrong confirmation",
			err:    &apperr.AuthorizationError{Action: "delete"},
			status: http.StatusForbidden,
		},
		{
			name:   "missing row",
			err:    apperr.NotFound("order", "o1"),
			status: http.StatusNotFound,
		},
		{
			name:   "store failure reports the underlying message",
			err:    fmt.Errorf("place order: %w", apperr.Persistence("save order", errors.New("connection reset"))),
			status: http.StatusServiceUnavailable,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "save order: connection reset", body["error"])
			},
		},
		{
			name:   "unknown error",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "internal server error", body["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) {
				respondWithDomainError(c, "GET /x", tt.err, gin.H{"extra": "kept"})
			})

			w := doJSON(t, r, http.MethodGet, "/x", nil)
			assert.Equal(t, tt.status, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, "kept", body["extra"])
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	r := gin.New()
	healthy := true
	r.GET("/health", Health(PingFunc(func(ctx context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("no primary")
	})))

	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/health", nil).Code)
	healthy = false
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, r, http.MethodGet, "/health", nil).Code)
}

func TestHandlePanicReturns500(t *testing.T) {
	r := gin.New()
	r.GET("/panic", func(c *gin.Context) {
		defer handlePanic(c, "GET /panic")
		panic("unexpected")
	})

	w := doJSON(t, r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestBindingMessage(t *testing.T) {
	r := gin.New()
	r.POST("/login", AdminLogin(nil, "secret", 0))

	w := doJSON(t, r, http.MethodPost, "/login", map[string]string{"email": "  ", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email is required", decodeBody(t, w)["error"])
}

func bytesReader(raw []byte, ok bool) io.Reader {
	if !ok {
		return nil
	}
	return bytes.NewReader(raw)
}
