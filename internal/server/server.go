package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"kycportal/internal/config"
	"kycportal/internal/handler"
	"kycportal/internal/middleware"
	"kycportal/internal/notifier"
	"kycportal/internal/repository"
	"kycportal/internal/service"
	"kycportal/internal/storage"
)

type Server struct {
	router *gin.Engine
	cfg    *config.Config
	logger *zap.Logger
}

// NewServer wires repositories, services and handlers onto a Gin router.
func NewServer(db *sqlx.DB, cfg *config.Config, docs *storage.DocumentStore, bot *notifier.Notifier, logger *zap.Logger, log *logrus.Logger) *Server {
	router := gin.Default()
	router.MaxMultipartMemory = cfg.Upload.MaxFileSize

	s := &Server{
		router: router,
		cfg:    cfg,
		logger: logger,
	}

	authRepo := repository.NewAuthRepository(db, log)
	kycRepo := repository.NewKYCRepository(db, log)

	authService := service.NewAuthService(authRepo, cfg, logger)
	kycService := service.NewKYCService(kycRepo, authRepo, docs, bot, cfg.Upload.MaxFileSize, logger)

	authHandler := handler.NewAuthHandler(authService, cfg, log)
	kycHandler := handler.NewKYCHandler(kycService, cfg.Upload.MaxFileSize, log)

	s.setupRoutes(authService, authHandler, kycHandler)
	return s
}

func (s *Server) setupRoutes(authService service.AuthService, authHandler handler.AuthHandler, kycHandler handler.KYCHandler) {
	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := s.router.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh-token", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)

	authRequired := middleware.Auth(authService, s.cfg.Auth.AccessCookieName, s.logger)
	authGroup.GET("/me", authRequired, authHandler.Me)

	kycGroup := api.Group("/kyc")
	kycGroup.Use(authRequired)
	{
		kycGroup.POST("/submit", kycHandler.Submit)
		kycGroup.GET("/status", kycHandler.Status)
		kycGroup.GET("/document/:id", kycHandler.Document)

		admin := kycGroup.Group("")
		admin.Use(middleware.AdminOnly())
		{
			admin.GET("/all", kycHandler.All)
			admin.GET("/search", kycHandler.Search)
			admin.GET("/statistics", kycHandler.Statistics)
			admin.PUT("/:id/status", kycHandler.UpdateStatus)
			admin.DELETE("/:id", kycHandler.Delete)
		}
	}
}

// Handler exposes the underlying router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(addr string) {
	s.logger.Info("Server starting", zap.String("addr", addr))
	if err := s.router.Run(addr); err != nil {
		s.logger.Fatal("Server failed to start", zap.Error(err))
	}
}
