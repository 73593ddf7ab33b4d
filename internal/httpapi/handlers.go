package httpapi

import (
	"errors"
	"net/http"
	"time"

	"inspection-backoffice/internal/auth"
	"inspection-backoffice/internal/identity"
	"inspection-backoffice/internal/records"
	"inspection-backoffice/pkg/httpx"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Credentials *auth.Credentials
	Accounts    *auth.Accounts
	Records     *records.Service
	Clock       func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

// --- Health ---

// Health is unauthenticated and exempt from rate limiting.
func (h Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": h.now().UTC().Format(time.RFC3339)})
}

// --- helpers ---

func requestInfo(c *gin.Context) auth.RequestInfo {
	return auth.RequestInfo{Method: c.Request.Method, Path: c.Request.URL.Path, IP: c.ClientIP()}
}

func principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := auth.FromGin(c)
	if !ok {
		auth.Abort(c, auth.Unauthenticated())
	}
	return p, ok
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		httpx.FailWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body.", err.Error())
		return false
	}
	return true
}

// fail maps service errors onto the response envelope.
func fail(c *gin.Context, err error) {
	var ae *auth.Error
	switch {
	case errors.As(err, &ae):
		auth.Abort(c, ae)
	case errors.Is(err, records.ErrNotFound), errors.Is(err, identity.ErrNotFound):
		httpx.Fail(c, http.StatusNotFound, "NOT_FOUND", "Resource not found.")
	case errors.Is(err, records.ErrAccessDenied):
		auth.Abort(c, auth.AccessDenied())
	case errors.Is(err, records.ErrInvalidInput), errors.Is(err, identity.ErrInvalidInput):
		httpx.Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, identity.ErrEmailTaken):
		httpx.Fail(c, http.StatusConflict, "EMAIL_TAKEN", "An account with this email already exists.")
	case errors.Is(err, identity.ErrEmployeeIDTaken):
		httpx.Fail(c, http.StatusConflict, "EMPLOYEE_ID_TAKEN", "This employee id is already assigned.")
	case errors.Is(err, auth.ErrInvalidCredentials):
		httpx.Fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password.")
	case errors.Is(err, auth.ErrIncorrectPassword):
		httpx.Fail(c, http.StatusBadRequest, "INCORRECT_PASSWORD", "Current password is incorrect.")
	case errors.Is(err, auth.ErrWeakPassword):
		httpx.Fail(c, http.StatusBadRequest, "WEAK_PASSWORD", "Password must be at least 6 characters.")
	case errors.Is(err, auth.ErrPasswordTooLong):
		httpx.Fail(c, http.StatusBadRequest, "WEAK_PASSWORD", "Password must be at most 72 bytes.")
	case errors.Is(err, auth.ErrFirstLoginCompleted):
		httpx.Fail(c, http.StatusConflict, "FIRST_LOGIN_COMPLETED", "First login has already been completed.")
	case errors.Is(err, auth.ErrSelfLockout):
		httpx.Fail(c, http.StatusBadRequest, "SELF_LOCKOUT", "You cannot deactivate or demote your own account.")
	default:
		_ = c.Error(err)
		httpx.Fail(c, http.StatusInternalServerError, "INTERNAL", "Internal server error.")
	}
}
