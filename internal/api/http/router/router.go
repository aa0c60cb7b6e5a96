package router

import (
	"github.com/gin-gonic/gin"

	"github.com/dtroode/userauth-server/internal/api/http/handler"
	"github.com/dtroode/userauth-server/internal/api/http/middleware"
	"github.com/dtroode/userauth-server/internal/logger"
	"github.com/dtroode/userauth-server/internal/metrics"
	"github.com/dtroode/userauth-server/internal/model"
)

// Router wires HTTP routes and middleware.
type Router struct {
	authService    handler.AuthService
	checker        handler.ReadinessChecker
	metrics        *metrics.Metrics
	contextManager model.ContextManager
	cookie         handler.Cookie
	logger         *logger.Logger
}

// New creates new HTTP Router instance.
func New(
	authService handler.AuthService,
	checker handler.ReadinessChecker,
	metrics *metrics.Metrics,
	contextManager model.ContextManager,
	cookie handler.Cookie,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		checker:        checker,
		metrics:        metrics,
		contextManager: contextManager,
		cookie:         cookie,
		logger:         logger,
	}
}

// Register builds the gin engine. Session-protected routes sit behind Authenticate.
func (r *Router) Register() *gin.Engine {
	logging := middleware.NewLogging(r.logger)
	requests := middleware.NewMetrics(r.metrics)
	authenticate := middleware.NewAuthenticate(r.authService, r.contextManager, r.cookie.Name, r.logger)

	engine := gin.New()
	engine.Use(logging.Handle, requests.Handle, logging.Recovery())

	authHandler := handler.NewAuth(r.authService, r.contextManager, r.metrics, r.cookie, r.logger)
	engine.GET("/", authHandler.Index)
	engine.POST("/users", authHandler.RegisterUser)
	engine.POST("/sessions", authHandler.Login)

	protected := engine.Group("/", authenticate.Handle)
	protected.DELETE("/sessions", authHandler.Logout)
	protected.GET("/profile", authHandler.Profile)

	engine.GET("/healthz", handler.NewHealth(r.checker).Status)
	engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))

	return engine
}
