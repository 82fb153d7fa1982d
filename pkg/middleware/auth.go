package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Trungnc273/ebay-be/pkg/response"
)

const (
	UserIDKey     = "user_id"
	UsernameKey   = "username"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the token claims issued by the auth layer. This service only
// reads them; it never issues or refreshes tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// AuthMiddleware extracts the caller identity from a bearer token.
type AuthMiddleware struct {
	secret []byte
}

// NewAuthMiddleware creates a middleware validating HS256 tokens signed
// with the shared secret.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// ParseToken validates a raw token string and returns its claims.
func (m *AuthMiddleware) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}

// RequireAuth returns a Gin middleware that validates bearer tokens and
// stores the caller identity in the request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		claims, err := m.ParseToken(strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			response.Unauthorized(c, "failed to validate token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)

		c.Next()
	}
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(UserIDKey); exists {
		return id.(string)
	}
	return ""
}

// GetUsername extracts username from Gin context.
func GetUsername(c *gin.Context) string {
	if username, exists := c.Get(UsernameKey); exists {
		return username.(string)
	}
	return ""
}
