// Package handlers contains the handlers for the API
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/chnk8802/task-manager/internal/api/middleware"
	"github.com/chnk8802/task-manager/internal/service"
	"github.com/chnk8802/task-manager/pkg/utils/response"
	"github.com/chnk8802/task-manager/pkg/utils/zaplogger"
	"github.com/labstack/echo/v4"
)

// UserHandler is the handler for the account and session API
type UserHandler struct {
	accounts     *service.AccountService
	sessions     *service.SessionService
	notifier     service.Notifier
	cookieSecure bool
}

// NewUserHandler creates a new handler for the account and session API
func NewUserHandler(accounts *service.AccountService, sessions *service.SessionService, notifier service.Notifier, cookieSecure bool) *UserHandler {
	return &UserHandler{
		accounts:     accounts,
		sessions:     sessions,
		notifier:     notifier,
		cookieSecure: cookieSecure,
	}
}

// returned when a handler behind RequireAuth finds no identity
var errNoAuthContext = &service.Error{Kind: service.KindUnauthenticated, Message: "Please authenticate.", Err: service.ErrUnauthenticated}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup creates an account and, when a session can be issued, logs it in
func (h *UserHandler) Signup(c echo.Context) error {
	var in service.SignupInput
	if err := c.Bind(&in); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "Invalid request body")
	}

	ctx := c.Request().Context()
	account, err := h.accounts.Create(ctx, in)
	if err != nil {
		return response.FromError(c, err)
	}

	// the account exists from here on; without a session the client logs in separately
	if token, err := h.sessions.Issue(ctx, account.ID); err != nil {
		zaplogger.Error("Failed to issue signup session", zaplogger.Fields{"account_id": account.ID, "error": err.Error()})
	} else {
		h.setSessionCookie(c, token)
	}

	service.NotifyAsync(h.notifier, service.AccountEvent{
		Type:  service.EventWelcome,
		Email: account.Email,
		Name:  account.Name,
		At:    time.Now(),
	})

	return response.CreatedResponse(c, map[string]interface{}{
		"message": "User created successfully",
		"user":    account,
	})
}

// Login verifies credentials and sets a new session cookie
func (h *UserHandler) Login(c echo.Context) error {
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "Invalid request body")
	}

	ctx := c.Request().Context()
	account, err := h.accounts.VerifyCredentials(ctx, in.Email, in.Password)
	if err != nil {
		return response.FromError(c, err)
	}

	token, err := h.sessions.Issue(ctx, account.ID)
	if err != nil {
		return response.FromError(c, err)
	}
	h.setSessionCookie(c, token)

	return response.SuccessResponse(c, map[string]string{
		"message": fmt.Sprintf("Logged In Successfully! You are Welcome %s", account.Name),
	})
}

// Validate reports that the presented session is live
func (h *UserHandler) Validate(c echo.Context) error {
	return response.SuccessResponse(c, map[string]interface{}{
		"message":      "Success",
		"is_validated": true,
	})
}

// Logout revokes the session used for this request
func (h *UserHandler) Logout(c echo.Context) error {
	auth, ok := middleware.AuthFromContext(c)
	if !ok {
		return response.FromError(c, errNoAuthContext)
	}
	if err := h.sessions.Revoke(c.Request().Context(), auth.Account.ID, auth.Token); err != nil {
		return response.FromError(c, err)
	}
	h.clearSessionCookie(c)
	return response.SuccessResponse(c, map[string]string{"message": "User logged out successfully!"})
}

// LogoutAll revokes every session of the account
func (h *UserHandler) LogoutAll(c echo.Context) error {
	auth, ok := middleware.AuthFromContext(c)
	if !ok {
		return response.FromError(c, errNoAuthContext)
	}
	if err := h.sessions.RevokeAll(c.Request().Context(), auth.Account.ID); err != nil {
		return response.FromError(c, err)
	}
	h.clearSessionCookie(c)
	return response.SuccessResponse(c, map[string]string{"message": "All sessions logged out!"})
}

// Me returns the authenticated account
func (h *UserHandler) Me(c echo.Context) error {
	auth, ok := middleware.AuthFromContext(c)
	if !ok {
		return response.FromError(c, errNoAuthContext)
	}
	return response.SuccessResponse(c, map[string]interface{}{
		"user":    auth.Account,
		"message": fmt.Sprintf("Welcome %s", auth.Account.Name),
	})
}

// UpdateMe applies a profile update to the authenticated account
func (h *UserHandler) UpdateMe(c echo.Context) error {
	auth, ok := middleware.AuthFromContext(c)
	if !ok {
		return response.FromError(c, errNoAuthContext)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "Invalid request body")
	}
	patch, err := service.ParsePatch(body)
	if err != nil {
		return response.FromError(c, err)
	}

	account, err := h.accounts.Update(c.Request().Context(), auth.Account.ID, patch)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, map[string]interface{}{
		"user":    account,
		"message": "Updates were successful",
	})
}

// DeleteMe deletes the authenticated account with all its tasks and sessions
func (h *UserHandler) DeleteMe(c echo.Context) error {
	auth, ok := middleware.AuthFromContext(c)
	if !ok {
		return response.FromError(c, errNoAuthContext)
	}

	account, err := h.accounts.Delete(c.Request().Context(), auth.Account.ID)
	if err != nil {
		return response.FromError(c, err)
	}
	h.clearSessionCookie(c)

	service.NotifyAsync(h.notifier, service.AccountEvent{
		Type:  service.EventCancellation,
		Email: account.Email,
		Name:  account.Name,
		At:    time.Now(),
	})
	zaplogger.Info("Account closed", zaplogger.Fields{"account_id": account.ID})

	return response.SuccessResponse(c, account)
}

func (h *UserHandler) setSessionCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *UserHandler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
