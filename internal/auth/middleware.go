package auth

import (
	"errors"
	"net/http"

	"inspection-backoffice/pkg/httpx"
	"inspection-backoffice/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"

const ginPrincipalKey = "principal"

// RequireSession authenticates every request and injects the Principal into
// both the request context and the gin context.
// It does not perform role checks; those belong to internal/rbac.
func RequireSession(v *Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := v.Authenticate(c.Request.Context(), c.GetHeader(authorizationHeader), RequestInfo{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			IP:     c.ClientIP(),
		})
		if err != nil {
			Abort(c, err)
			return
		}

		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
		c.Set(ginPrincipalKey, p)
		c.Set(logger.GinSubjectKey, p.ID)
		c.Next()
	}
}

// RequireCompletedFirstLogin blocks accounts still holding a temporary password.
// Mount it after RequireSession on every route except the first-login flow itself.
func RequireCompletedFirstLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := FromGin(c)
		if !ok {
			Abort(c, Unauthenticated())
			return
		}
		if p.FirstLoginPending {
			Abort(c, firstLoginRequired())
			return
		}
		c.Next()
	}
}

// FromGin returns the Principal stored by RequireSession.
func FromGin(c *gin.Context) (Principal, bool) {
	if v, ok := c.Get(ginPrincipalKey); ok {
		if p, ok := v.(Principal); ok {
			return p, true
		}
	}
	p, err := PrincipalFrom(c.Request.Context())
	return p, err == nil
}

// Abort writes err as the standard failure envelope. Non-*Error values become 500s.
func Abort(c *gin.Context, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		_ = c.Error(err)
		httpx.Fail(c, http.StatusInternalServerError, "INTERNAL", "Internal server error.")
		return
	}
	if ae.Details != nil {
		httpx.FailWithDetails(c, ae.Status, string(ae.Kind), ae.Message, ae.Details)
		return
	}
	httpx.Fail(c, ae.Status, string(ae.Kind), ae.Message)
}
