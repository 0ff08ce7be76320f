package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"kycportal/internal/config"
	"kycportal/internal/middleware"
	"kycportal/internal/service"
)

type AuthHandler interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Refresh(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
}

type authHandler struct {
	authService service.AuthService
	cfg         *config.Config
	log         *logrus.Logger
}

func NewAuthHandler(authService service.AuthService, cfg *config.Config, log *logrus.Logger) AuthHandler {
	return &authHandler{authService: authService, cfg: cfg, log: log}
}

type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *authHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Passwords do not match"})
		return
	}

	user, pair, err := h.authService.Register(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email already registered"})
			return
		}
		h.log.Errorf("Failed to register user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error registering user"})
		return
	}

	h.setTokenCookies(c, pair)
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user.Public(),
	})
}

func (h *authHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	user, pair, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
			return
		}
		h.log.Errorf("Failed to login user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error logging in"})
		return
	}

	h.setTokenCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged in successfully",
		"user":    user.Public(),
	})
}

func (h *authHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(h.cfg.Auth.RefreshCookieName)
	if err != nil || refreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Refresh token required"})
		return
	}

	pair, err := h.authService.Refresh(refreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid refresh token"})
			return
		}
		h.log.Errorf("Failed to refresh tokens: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error refreshing token"})
		return
	}

	h.setTokenCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"message": "Token refreshed successfully"})
}

// Logout clears both cookies and, when the caller still holds a valid
// access token, invalidates the stored refresh token. It never fails the
// client for an expired session.
func (h *authHandler) Logout(c *gin.Context) {
	if tokenString, err := c.Cookie(h.cfg.Auth.AccessCookieName); err == nil && tokenString != "" {
		if claims, err := h.authService.VerifyAccess(tokenString); err == nil {
			if err := h.authService.Logout(claims.UserID); err != nil {
				h.log.Errorf("Failed to clear refresh token on logout: %v", err)
			}
		}
	}

	h.clearTokenCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *authHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return
	}

	user, err := h.authService.CurrentUser(claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		h.log.Errorf("Failed to fetch current user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.Public()})
}

// setTokenCookies installs both http-only, same-site-strict cookies with
// lifetimes matching the token expiries.
func (h *authHandler) setTokenCookies(c *gin.Context, pair *service.TokenPair) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cfg.Auth.AccessCookieName, pair.AccessToken,
		int(h.cfg.AccessTokenTTL().Seconds()), "/", "", h.cfg.Auth.SecureCookies, true)
	c.SetCookie(h.cfg.Auth.RefreshCookieName, pair.RefreshToken,
		int(h.cfg.RefreshTokenTTL().Seconds()), "/", "", h.cfg.Auth.SecureCookies, true)
}

func (h *authHandler) clearTokenCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cfg.Auth.AccessCookieName, "", -1, "/", "", h.cfg.Auth.SecureCookies, true)
	c.SetCookie(h.cfg.Auth.RefreshCookieName, "", -1, "/", "", h.cfg.Auth.SecureCookies, true)
}
