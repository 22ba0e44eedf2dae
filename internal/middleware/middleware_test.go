package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
	token  string
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	v.token = token
	return v.claims, v.err
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			c.Status(http.StatusNoContent)
			return
		}
		c.String(http.StatusOK, claims.UserID)
	})
	r.GET("/me", handlers...)
	return r
}

func serve(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAcceptsBearerToken(t *testing.T) {
	stub := &validatorStub{claims: &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}}
	rec := serve(newRouter(JWT(stub)), "bearer abc.def")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", rec.Body.String())
	assert.Equal(t, "abc.def", stub.token)
}

func TestJWTRejectsMissingOrInvalidTokens(t *testing.T) {
	stub := &validatorStub{err: appErrors.Wrap(errors.New("bad sig"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")}
	r := newRouter(JWT(stub))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Basic Zm9v").Code)
	rec := serve(r, "Bearer broken")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestRequireRoles(t *testing.T) {
	teacher := &validatorStub{claims: &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}}
	pupil := &validatorStub{claims: &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}}

	assert.Equal(t, http.StatusOK, serve(newRouter(JWT(teacher), RequireRoles(models.RoleTeacher, models.RoleAdmin)), "Bearer x").Code)
	assert.Equal(t, http.StatusForbidden, serve(newRouter(JWT(pupil), RequireRoles(models.RoleTeacher)), "Bearer x").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(newRouter(RequireRoles(models.RoleTeacher)), "").Code)
}

type observerStub struct {
	mu    sync.Mutex
	paths []string
	codes []int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paths = append(o.paths, method+" "+path)
	o.codes = append(o.codes, status)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &observerStub{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/substitutions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/substitutions/sub-1", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, []string{"GET /substitutions/:id", "GET unmatched"}, obs.paths)
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, obs.codes)
}
