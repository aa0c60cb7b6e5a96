package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/userauth-server/internal/logger"
	"github.com/dtroode/userauth-server/internal/model"
)

// SessionResolver resolves a user from a session id.
type SessionResolver interface {
	GetUserFromSessionID(ctx context.Context, sessionID string) (model.User, bool, error)
}

// Authenticate resolves the session cookie and injects the user into the request context.
type Authenticate struct {
	resolver       SessionResolver
	contextManager model.ContextManager
	cookieName     string
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(resolver SessionResolver, contextManager model.ContextManager, cookieName string, logger *logger.Logger) *Authenticate {
	return &Authenticate{
		resolver:       resolver,
		contextManager: contextManager,
		cookieName:     cookieName,
		logger:         logger,
	}
}

// Handle aborts with 403 when the cookie is missing or maps to no user.
func (m *Authenticate) Handle(c *gin.Context) {
	sessionID, err := c.Cookie(m.cookieName)
	if err != nil || sessionID == "" {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ctx := c.Request.Context()
	user, ok, err := m.resolver.GetUserFromSessionID(ctx, sessionID)
	if err != nil {
		m.logger.Error("Authenticate middleware: failed to resolve session",
			"path", c.Request.URL.Path,
			"error", err.Error())
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}
	if !ok {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	c.Request = c.Request.WithContext(m.contextManager.SetUserToContext(ctx, user))
	c.Next()
}
