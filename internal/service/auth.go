package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"kycportal/internal/config"
	"kycportal/internal/models"
	"kycportal/internal/repository"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AuthService interface {
	Register(email, password string) (*models.User, *TokenPair, error)
	Login(email, password string) (*models.User, *TokenPair, error)
	Refresh(refreshToken string) (*TokenPair, error)
	Logout(userID int64) error
	CurrentUser(userID int64) (*models.User, error)
	VerifyAccess(token string) (*models.Claims, error)
	EnsureAdmin(email, password string) error
}

type authService struct {
	repo   repository.AuthRepository
	cfg    *config.Config
	logger *zap.Logger
}

func NewAuthService(repo repository.AuthRepository, cfg *config.Config, logger *zap.Logger) AuthService {
	return &authService{repo: repo, cfg: cfg, logger: logger}
}

func (s *authService) Register(email, password string) (*models.User, *TokenPair, error) {
	passwordHash, err := HashSecret(password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
	}

	if err := s.repo.CreateUser(user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("User registered", zap.Int64("user_id", user.ID))
	return user, pair, nil
}

func (s *authService) Login(email, password string) (*models.User, *TokenPair, error) {
	user, err := s.repo.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Same error as a wrong password, so responses never reveal
			// whether the email exists.
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if !VerifySecret(user.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("User logged in", zap.Int64("user_id", user.ID))
	return user, pair, nil
}

// Refresh rotates the refresh token: a presented token must carry a valid
// signature AND match the stored hash. A signature-valid token that was
// already rotated out fails verification.
func (s *authService) Refresh(refreshToken string) (*TokenPair, error) {
	claims := &models.RefreshClaims{}
	token, err := jwt.ParseWithClaims(refreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.Auth.RefreshSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if !user.RefreshTokenHash.Valid || !VerifySecret(user.RefreshTokenHash.String, refreshToken) {
		s.logger.Warn("Refresh token does not match stored hash", zap.Int64("user_id", user.ID))
		return nil, ErrInvalidToken
	}

	return s.issueTokens(user)
}

func (s *authService) Logout(userID int64) error {
	if err := s.repo.ClearRefreshToken(userID); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	s.logger.Info("User logged out", zap.Int64("user_id", userID))
	return nil
}

func (s *authService) CurrentUser(userID int64) (*models.User, error) {
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}

func (s *authService) VerifyAccess(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.Auth.AccessSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// EnsureAdmin creates the administrator account at startup when it does not
// exist yet. An existing account is left untouched.
func (s *authService) EnsureAdmin(email, password string) error {
	_, err := s.repo.GetUserByEmail(email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	passwordHash, err := HashSecret(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
	}
	if err := s.repo.CreateUser(admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	s.logger.Info("Admin user created", zap.String("email", email))
	return nil
}

// issueTokens mints a new access/refresh pair and overwrites the stored
// refresh-token hash, invalidating the previous refresh token.
func (s *authService) issueTokens(user *models.User) (*TokenPair, error) {
	now := time.Now()

	accessClaims := &models.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL())),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).
		SignedString([]byte(s.cfg.Auth.AccessSecret))
	if err != nil {
		s.logger.Error("Failed to sign access token", zap.Error(err))
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	// The unique ID makes every rotation produce a distinct token even
	// within the same second, so the stored hash never matches a stale one.
	refreshClaims := &models.RefreshClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.RefreshTokenTTL())),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).
		SignedString([]byte(s.cfg.Auth.RefreshSecret))
	if err != nil {
		s.logger.Error("Failed to sign refresh token", zap.Error(err))
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	refreshHash, err := HashSecret(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to hash refresh token: %w", err)
	}
	if err := s.repo.UpdateRefreshTokenHash(user.ID, refreshHash); err != nil {
		return nil, fmt.Errorf("failed to store refresh token hash: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
