package middleware

import (
	"net/http"
	"strings"

	jwtsvc "blogapi/internal/pkg/jwt"
	"blogapi/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccessTokenVerifier validates a bearer access token.
type AccessTokenVerifier interface {
	VerifyAccessToken(token string) (*jwtsvc.Claims, error)
}

// JWTAuth rejects requests without a bearer token (401) or with one that fails
// verification (403). On success it sets "user_id" and "email" on the context.
func JWTAuth(verifier AccessTokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c.GetHeader("Authorization"))
		if tokenStr == "" {
			response.AbortError(c, http.StatusUnauthorized, "AUTH_TOKEN_MISSING", "Access token is required")
			return
		}

		claims, err := verifier.VerifyAccessToken(tokenStr)
		if err != nil {
			response.AbortError(c, http.StatusForbidden, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)

		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
