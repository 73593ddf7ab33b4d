package rbac

import (
	"inspection-backoffice/internal/auth"
	"inspection-backoffice/internal/identity"
	"inspection-backoffice/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequireRoles allows access only if the caller's role is in allowed.
// It must run after auth.RequireSession.
func RequireRoles(allowed ...identity.Role) gin.HandlerFunc {
	names := make([]string, len(allowed))
	for i, r := range allowed {
		names[i] = string(r)
	}

	return func(c *gin.Context) {
		p, ok := auth.FromGin(c)
		if !ok {
			auth.Abort(c, auth.Unauthenticated())
			return
		}
		if !Authorize(p.Role, allowed) {
			logger.FromGin(c).Info("forbidden", "subject_id", p.ID, "role", string(p.Role), "required", names)
			auth.Abort(c, auth.Forbidden(names))
			return
		}
		c.Next()
	}
}

// Require is RequireRoles bound to the matrix cell for (res, act).
func Require(res Resource, act Action) gin.HandlerFunc {
	return RequireRoles(RequiredRoles(res, act)...)
}
