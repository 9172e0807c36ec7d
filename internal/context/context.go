package context

import (
	"github.com/gin-gonic/gin"
	"github.com/inkpost/inkpost/server/internal/auth"
)

// Context key under which APIKeyAuth stores the authenticated user.
const CtxKeyUser = "auth_user"

// MustGetUser extracts the authenticated user from the Gin context. Panics
// when absent: every route that calls it sits behind APIKeyAuth, so a miss
// is a wiring bug, not a request error.
func MustGetUser(c *gin.Context) *auth.User {
	v, exists := c.Get(CtxKeyUser)
	if !exists {
		panic("MustGetUser called without APIKeyAuth middleware")
	}
	return v.(*auth.User)
}
