package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
	appctx "backoffice/internal/core/context"
)

func init() { gin.SetMode(gin.TestMode) }

type staticValidator struct {
	user *appctx.UserContext
	err  error
}

func (v staticValidator) ValidateToken(string) (*appctx.UserContext, error) {
	return v.user, v.err
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(Trace(), ErrorHandler())
	r.GET("/app", func(c *gin.Context) { _ = c.Error(apperror.NewForbidden("Forbidden - Invalid default branch")) })
	r.GET("/raw", func(c *gin.Context) { _ = c.Error(errors.New("pq: connection reset")) })

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"Forbidden - Invalid default branch"`)

	req := httptest.NewRequest(http.MethodGet, "/raw", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	rec = serve(r, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"request_id":"req-1"`)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), Recovery())
	r.GET("/boom", func(*gin.Context) { panic("nil map") })

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuth(t *testing.T) {
	user := &appctx.UserContext{UserID: "0190f0c2-8f3a-7cc1-9d5e-9a1c2f3b4d5e"}
	handler := func(c *gin.Context) { c.String(http.StatusOK, appctx.GetUserID(c.Request.Context())) }

	ok := gin.New()
	ok.Use(ErrorHandler(), Auth(staticValidator{user: user}))
	ok.GET("/", handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := serve(ok, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.UserID, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, serve(ok, req).Code)

	assert.Equal(t, http.StatusUnauthorized, serve(ok, httptest.NewRequest(http.MethodGet, "/", nil)).Code)

	bad := gin.New()
	bad.Use(ErrorHandler(), Auth(staticValidator{err: errors.New("expired")}))
	bad.GET("/", handler)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	assert.Equal(t, http.StatusUnauthorized, serve(bad, req).Code)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), RateLimit(2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		return req
	}
	assert.Equal(t, http.StatusNoContent, serve(r, newReq()).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, newReq()).Code)

	rec := serve(r, newReq())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), apperror.CodeRateLimited)

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:5000"
	assert.Equal(t, http.StatusNoContent, serve(r, other).Code)
}

func TestSecureHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecureHeaders(false))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
