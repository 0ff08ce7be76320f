package handler

import (
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"kycportal/internal/config"
	"kycportal/internal/models"
	"kycportal/internal/repository"
	"kycportal/internal/service"
)

type fakeAuthService struct {
	registerFn func(email, password string) (*models.User, *service.TokenPair, error)
	loginFn    func(email, password string) (*models.User, *service.TokenPair, error)
	refreshFn  func(refreshToken string) (*service.TokenPair, error)
	logoutFn   func(userID int64) error
	currentFn  func(userID int64) (*models.User, error)
	verifyFn   func(token string) (*models.Claims, error)
}

func (f *fakeAuthService) Register(email, password string) (*models.User, *service.TokenPair, error) {
	return f.registerFn(email, password)
}

func (f *fakeAuthService) Login(email, password string) (*models.User, *service.TokenPair, error) {
	return f.loginFn(email, password)
}

func (f *fakeAuthService) Refresh(refreshToken string) (*service.TokenPair, error) {
	return f.refreshFn(refreshToken)
}

func (f *fakeAuthService) Logout(userID int64) error {
	if f.logoutFn != nil {
		return f.logoutFn(userID)
	}
	return nil
}

func (f *fakeAuthService) CurrentUser(userID int64) (*models.User, error) {
	return f.currentFn(userID)
}

func (f *fakeAuthService) VerifyAccess(token string) (*models.Claims, error) {
	if f.verifyFn != nil {
		return f.verifyFn(token)
	}
	return nil, service.ErrInvalidToken
}

func (f *fakeAuthService) EnsureAdmin(email, password string) error { return nil }

type fakeKYCService struct {
	submitFn     func(userID int64, fullName string, doc service.Upload) (*models.KYC, error)
	statusForFn  func(userID int64) (*models.KYC, error)
	listFn       func() ([]models.KYC, error)
	searchFn     func(filter repository.SearchFilter) ([]models.KYC, error)
	updateFn     func(id int64, status models.KYCStatus, notes string) (*models.KYC, error)
	statisticsFn func() (*models.Statistics, error)
	documentFn   func(id int64, claims *models.Claims) ([]byte, string, error)
	deleteFn     func(id int64) error
}

func (f *fakeKYCService) Submit(userID int64, fullName string, doc service.Upload) (*models.KYC, error) {
	return f.submitFn(userID, fullName, doc)
}

func (f *fakeKYCService) StatusFor(userID int64) (*models.KYC, error) {
	return f.statusForFn(userID)
}

func (f *fakeKYCService) List() ([]models.KYC, error) { return f.listFn() }

func (f *fakeKYCService) Search(filter repository.SearchFilter) ([]models.KYC, error) {
	return f.searchFn(filter)
}

func (f *fakeKYCService) UpdateStatus(id int64, status models.KYCStatus, notes string) (*models.KYC, error) {
	return f.updateFn(id, status, notes)
}

func (f *fakeKYCService) Statistics() (*models.Statistics, error) { return f.statisticsFn() }

func (f *fakeKYCService) Document(id int64, claims *models.Claims) ([]byte, string, error) {
	return f.documentFn(id, claims)
}

func (f *fakeKYCService) Delete(id int64) error { return f.deleteFn(id) }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.AccessCookieName = "accessToken"
	cfg.Auth.RefreshCookieName = "refreshToken"
	cfg.Auth.AccessTokenTTLMin = 15
	cfg.Auth.RefreshTokenTTLHrs = 7 * 24
	return cfg
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// withClaims mimics the auth middleware for handlers that expect verified
// claims on the context.
func withClaims(claims *models.Claims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set("claims", claims)
		}
		c.Next()
	}
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
