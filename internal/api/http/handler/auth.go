package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dtroode/userauth-server/internal/logger"
	"github.com/dtroode/userauth-server/internal/metrics"
	"github.com/dtroode/userauth-server/internal/model"
)

// AuthService defines registration, login and session operations.
type AuthService interface {
	RegisterUser(ctx context.Context, email, password string) (model.User, error)
	ValidLogin(ctx context.Context, email, password string) (bool, error)
	CreateSession(ctx context.Context, email string) (string, bool, error)
	GetUserFromSessionID(ctx context.Context, sessionID string) (model.User, bool, error)
	DestroySession(ctx context.Context, userID uuid.UUID) error
}

// EventRecorder counts authentication outcomes.
type EventRecorder interface {
	ObserveAuth(event, result string)
}

// Cookie describes the session cookie.
type Cookie struct {
	Name   string
	Secure bool
}

// Auth handles the user and session routes.
type Auth struct {
	authService    AuthService
	contextManager model.ContextManager
	events         EventRecorder
	cookie         Cookie
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(
	authService AuthService,
	contextManager model.ContextManager,
	events EventRecorder,
	cookie Cookie,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		authService:    authService,
		contextManager: contextManager,
		events:         events,
		cookie:         cookie,
		logger:         logger,
	}
}

// Index answers GET /.
func (h *Auth) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Bienvenue"})
}

// RegisterUser answers POST /users with form fields email and password.
func (h *Auth) RegisterUser(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	_, err := h.authService.RegisterUser(c.Request.Context(), email, password)
	switch {
	case err == nil:
		h.events.ObserveAuth(metrics.EventRegister, metrics.ResultSuccess)
		c.JSON(http.StatusOK, gin.H{"email": email, "message": "user created"})
	case errors.Is(err, model.ErrDuplicateUser):
		h.events.ObserveAuth(metrics.EventRegister, metrics.ResultRejected)
		c.JSON(http.StatusBadRequest, gin.H{"message": "email already registered"})
	case errors.Is(err, model.ErrInvalidInput):
		h.events.ObserveAuth(metrics.EventRegister, metrics.ResultRejected)
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid email or password"})
	default:
		h.events.ObserveAuth(metrics.EventRegister, metrics.ResultError)
		h.internalError(c, "registration failed", err)
	}
}

// Login answers POST /sessions and sets the session cookie.
func (h *Auth) Login(c *gin.Context) {
	ctx := c.Request.Context()
	email := c.PostForm("email")
	password := c.PostForm("password")
	if email == "" || password == "" {
		h.events.ObserveAuth(metrics.EventLogin, metrics.ResultRejected)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ok, err := h.authService.ValidLogin(ctx, email, password)
	if err != nil {
		h.events.ObserveAuth(metrics.EventLogin, metrics.ResultError)
		h.internalError(c, "login failed", err)
		return
	}
	if !ok {
		h.events.ObserveAuth(metrics.EventLogin, metrics.ResultRejected)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	h.events.ObserveAuth(metrics.EventLogin, metrics.ResultSuccess)

	sessionID, ok, err := h.authService.CreateSession(ctx, email)
	if err != nil {
		h.events.ObserveAuth(metrics.EventSessionCreate, metrics.ResultError)
		h.internalError(c, "session creation failed", err)
		return
	}
	if !ok {
		h.events.ObserveAuth(metrics.EventSessionCreate, metrics.ResultRejected)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	h.events.ObserveAuth(metrics.EventSessionCreate, metrics.ResultSuccess)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, sessionID, 0, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"email": email, "message": "logged in"})
}

// Logout answers DELETE /sessions. Requires an authenticated user in context.
func (h *Auth) Logout(c *gin.Context) {
	user, ok := h.contextManager.GetUserFromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	if err := h.authService.DestroySession(c.Request.Context(), user.ID); err != nil {
		h.events.ObserveAuth(metrics.EventSessionDestroy, metrics.ResultError)
		h.internalError(c, "logout failed", err)
		return
	}
	h.events.ObserveAuth(metrics.EventSessionDestroy, metrics.ResultSuccess)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.Redirect(http.StatusFound, "/")
}

// Profile answers GET /profile. Requires an authenticated user in context.
func (h *Auth) Profile(c *gin.Context) {
	user, ok := h.contextManager.GetUserFromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	c.JSON(http.StatusOK, gin.H{"email": user.Email})
}

func (h *Auth) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error("Auth handler: "+msg,
		"path", c.FullPath(),
		"error", err.Error())
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
}
