package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ujianku/ujianku-backend/internal/response"
	"github.com/ujianku/ujianku-backend/internal/service"
)

// CheckSingleDeviceSession rejects student requests whose JWT's JTI no
// longer matches the session stored in Redis. A second login from another
// device overwrites the JTI, which kicks the first device out on its next
// request. Non-student tokens pass through untouched.
func CheckSingleDeviceSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		switch {
		case claims == nil:
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		case claims.TokenType != service.TokenTypeStudent:
			c.Next()
		case authService.ValidateStudentSession(c.Request.Context(), claims.UserID, claims.ID) != nil:
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
		default:
			c.Next()
		}
	}
}
