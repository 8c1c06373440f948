package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/taskmaster/internal/auth"
	"github.com/geocoder89/taskmaster/internal/cache"
	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep these small interfaces so tests can fake them easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type UserResolver interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users UserResolver
	cache *cache.Cache
}

func NewAuthMiddleware(jwt TokenVerifier, users UserResolver) *AuthMiddleware {
	return &AuthMiddleware{
		jwt:   jwt,
		users: users,
		cache: cache.New(30 * time.Second),
	}
}

// RequireAuth gates protected routes: extract the bearer token, verify it,
// resolve the subject against the user store and attach the identity to the
// request context. A token for a since-deleted account fails here, not
// deeper in a handler.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "no_token", "Not authorized, no token provided")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "no_token", "Not authorized, no token provided")
			return
		}

		claims, err := m.jwt.Verify(raw)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpired):
				abortUnauthorized(c, "token_expired", "Not authorized, token expired")
			case errors.Is(err, auth.ErrInvalid):
				abortUnauthorized(c, "token_invalid", "Not authorized, token invalid")
			default:
				abortUnauthorized(c, "token_failed", "Not authorized, token failed")
			}
			return
		}

		u, err := m.resolveUser(c, claims.UserID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				abortUnauthorized(c, "user_not_found", "Not authorized, user session invalid")
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "internal_error",
					"message": "Could not resolve identity",
				},
			})
			return
		}

		AttachUser(c, u)

		c.Next()
	}
}

func (m *AuthMiddleware) resolveUser(c *gin.Context, id string) (user.User, error) {
	if v, ok := m.cache.Get(id); ok {
		if u, ok := v.(user.User); ok {
			return u, nil
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := m.users.GetByID(cctx, id)
	if err != nil {
		return user.User{}, err
	}

	m.cache.Set(id, u)
	return u, nil
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// Helpers so handlers (and their tests) don't need to know the magic keys.

// AttachUser stashes a resolved identity on the request context.
func AttachUser(c *gin.Context, u user.User) {
	c.Set(ctxUserKey, u)
}

func UserFromContext(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	u, ok := UserFromContext(c)
	if !ok {
		return "", false
	}
	return u.ID, u.ID != ""
}
