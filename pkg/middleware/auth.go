package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prohmpiriya/event-attendance/pkg/response"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyEmail  = "email"
	ContextKeyRole   = "role"
)

// Roles issued by the auth collaborator
const (
	RoleAdmin       = "admin"
	RoleParticipant = "participant"
)

// JWTConfig holds JWT validation settings
type JWTConfig struct {
	Secret    string
	Issuer    string
	SkipPaths []string
}

// Claims is the subset of token claims the API relies on
type Claims struct {
	UserID string
	Email  string
	Role   string
}

var errInvalidToken = errors.New("invalid token")

// ParseToken validates an HS256 bearer token and extracts its claims
func ParseToken(tokenString string, cfg *JWTConfig) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		userID, _ = claims["sub"].(string)
	}
	if userID == "" {
		return nil, errInvalidToken
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return &Claims{UserID: userID, Email: email, Role: strings.ToLower(role)}, nil
}

// JWTMiddleware rejects requests without a valid bearer token
func JWTMiddleware(cfg *JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, p := range cfg.SkipPaths {
			if c.Request.URL.Path == p {
				c.Next()
				return
			}
		}

		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("missing bearer token"))
			return
		}

		claims, err := ParseToken(tokenString, cfg)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized(msg))
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyEmail, claims.Email)
		c.Set(ContextKeyRole, claims.Role)
		c.Next()
	}
}

// RequireRole allows only the listed roles through
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextKeyRole)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Forbidden("insufficient permissions"))
	}
}

// GetUserID returns the authenticated user ID
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextKeyUserID)
	return id, id != ""
}

// GetRole returns the authenticated role
func GetRole(c *gin.Context) string {
	return c.GetString(ContextKeyRole)
}
