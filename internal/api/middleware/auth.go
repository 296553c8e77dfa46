package middleware

import (
	"context"
	"errors"

	"github.com/chnk8802/task-manager/internal/models"
	"github.com/chnk8802/task-manager/internal/service"
	"github.com/chnk8802/task-manager/pkg/utils/response"
	"github.com/chnk8802/task-manager/pkg/utils/zaplogger"
	"github.com/labstack/echo/v4"
)

// SessionCookieName is the cookie carrying the session token
const SessionCookieName = "token"

const authContextKey = "auth"

// AuthContext is the identity resolved for the current request
type AuthContext struct {
	Account *models.AccountModel
	Token   string
}

// Authenticator resolves a session token to its account
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.AccountModel, error)
}

// RequireAuth rejects requests without a live session cookie.
// On success the AuthContext is available through AuthFromContext.
func RequireAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := ""
			if cookie, err := c.Cookie(SessionCookieName); err == nil {
				token = cookie.Value
			}

			account, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				var svcErr *service.Error
				if errors.As(err, &svcErr) && svcErr.Kind == service.KindUnauthenticated {
					zaplogger.Warn("Authentication rejected", zaplogger.Fields{
						"reason":    svcErr.Reason,
						"remote_ip": c.RealIP(),
						"uri":       c.Request().RequestURI,
					})
				} else {
					zaplogger.Error("Authentication failed", zaplogger.Fields{"error": err.Error()})
				}
				return response.FromError(c, err)
			}

			c.Set(authContextKey, &AuthContext{Account: account, Token: token})
			return next(c)
		}
	}
}

// AuthFromContext returns the identity stored by RequireAuth
func AuthFromContext(c echo.Context) (*AuthContext, bool) {
	auth, ok := c.Get(authContextKey).(*AuthContext)
	return auth, ok && auth != nil
}
