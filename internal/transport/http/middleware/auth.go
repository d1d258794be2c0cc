package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mentor-ai/internal/app"
	"mentor-ai/internal/model"
	"mentor-ai/internal/transport/http/response"
)

const (
	ContextSessionIDKey = "session_id"
	ContextUsernameKey  = "username"
	ContextSessionKey   = "session"
)

// AuthSession admits requests whose bearer token maps to a live session.
func AuthSession(authService *app.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid authorization scheme")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		session, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, app.ErrUnauthenticated) {
				response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired session")
			} else {
				response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load session failed")
			}
			c.Abort()
			return
		}

		c.Set(ContextSessionIDKey, session.ID)
		c.Set(ContextUsernameKey, session.Username)
		c.Set(ContextSessionKey, session)
		c.Next()
	}
}

func SessionFromContext(c *gin.Context) (*model.Session, bool) {
	v, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil, false
	}
	session, ok := v.(*model.Session)
	return session, ok && session != nil
}
