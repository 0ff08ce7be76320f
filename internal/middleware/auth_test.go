package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"kycportal/internal/models"
	"kycportal/internal/service"
)

type stubAuthService struct {
	claims *models.Claims
	err    error
}

func (s *stubAuthService) Register(email, password string) (*models.User, *service.TokenPair, error) {
	return nil, nil, nil
}

func (s *stubAuthService) Login(email, password string) (*models.User, *service.TokenPair, error) {
	return nil, nil, nil
}

func (s *stubAuthService) Refresh(refreshToken string) (*service.TokenPair, error) {
	return nil, nil
}

func (s *stubAuthService) Logout(userID int64) error { return nil }

func (s *stubAuthService) CurrentUser(userID int64) (*models.User, error) { return nil, nil }

func (s *stubAuthService) VerifyAccess(token string) (*models.Claims, error) {
	return s.claims, s.err
}

func (s *stubAuthService) EnsureAdmin(email, password string) error { return nil }

func newAuthRouter(auth service.AuthService, adminOnly bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{Auth(auth, "accessToken", zap.NewNop())}
	if adminOnly {
		handlers = append(handlers, AdminOnly())
	}
	handlers = append(handlers, func(c *gin.Context) {
		claims := GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"userId": claims.UserID})
	})
	r.GET("/protected", handlers...)
	return r
}

func doRequest(r *gin.Engine, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: cookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMissingCookie(t *testing.T) {
	r := newAuthRouter(&stubAuthService{}, false)

	w := doRequest(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message": "Authentication required"}`, w.Body.String())
}

func TestAuthExpiredToken(t *testing.T) {
	r := newAuthRouter(&stubAuthService{err: service.ErrTokenExpired}, false)

	w := doRequest(r, "stale")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message": "Token expired"}`, w.Body.String())
}

func TestAuthInvalidToken(t *testing.T) {
	r := newAuthRouter(&stubAuthService{err: service.ErrInvalidToken}, false)

	w := doRequest(r, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message": "Invalid token"}`, w.Body.String())
}

func TestAuthAttachesClaims(t *testing.T) {
	claims := &models.Claims{UserID: 42, Email: "alice@example.com", Role: models.RoleUser}
	r := newAuthRouter(&stubAuthService{claims: claims}, false)

	w := doRequest(r, "good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId": 42}`, w.Body.String())
}

func TestAdminOnlyRejectsUser(t *testing.T) {
	claims := &models.Claims{UserID: 42, Role: models.RoleUser}
	r := newAuthRouter(&stubAuthService{claims: claims}, true)

	w := doRequest(r, "good")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"message": "Admin access required"}`, w.Body.String())
}

func TestAdminOnlyAllowsAdmin(t *testing.T) {
	claims := &models.Claims{UserID: 1, Role: models.RoleAdmin}
	r := newAuthRouter(&stubAuthService{claims: claims}, true)

	w := doRequest(r, "good")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetClaimsAbsent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetClaims(c))
}
