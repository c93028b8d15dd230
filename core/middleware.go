package core

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userContextKey = "current_user"

// CORSMiddleware validates the Origin header and sets CORS response headers.
// With no configured origins every origin is allowed (local development, where
// the dashboard dev server proxies or calls the API cross-port).
func CORSMiddleware(cfg Config) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.ToLower(o)] = struct{}{}
	}

	isAllowed := func(origin string) bool {
		if origin == "" {
			// Same-origin navigation (no Origin header) is always fine.
			return true
		}
		if len(allowed) == 0 {
			return true
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if c.Request.Method == http.MethodOptions && origin != "" {
			if !isAllowed(origin) {
				respondDetail(c, http.StatusForbidden, "origin not allowed")
				c.Abort()
				return
			}
			setCORSHeaders(c, origin)
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		if !isAllowed(origin) {
			respondDetail(c, http.StatusForbidden, "origin not allowed")
			c.Abort()
			return
		}
		if origin != "" {
			setCORSHeaders(c, origin)
		}
		c.Next()
	}
}

func setCORSHeaders(c *gin.Context, origin string) {
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Vary", "Origin")
	c.Header("Access-Control-Allow-Credentials", "true")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
}

// AuthMiddleware validates the bearer token and loads the active account into
// the request context.
func AuthMiddleware(tokens *TokenService, users UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.Header("WWW-Authenticate", "Bearer")
			respondDetail(c, http.StatusUnauthorized, "Not authenticated")
			c.Abort()
			return
		}

		email, err := tokens.Validate(strings.TrimSpace(header[len(prefix):]))
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			respondDetail(c, http.StatusUnauthorized, "Could not validate credentials")
			c.Abort()
			return
		}

		rec, err := users.FindByEmail(c.Request.Context(), email)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				respondDetail(c, http.StatusUnauthorized, "Could not validate credentials")
			} else {
				respondDetail(c, http.StatusInternalServerError, "failed to load account")
			}
			c.Abort()
			return
		}
		if !rec.IsActive {
			respondDetail(c, http.StatusForbidden, "User account is inactive")
			c.Abort()
			return
		}

		c.Set(userContextKey, rec.User())
		c.Next()
	}
}

// CurrentUser returns the account loaded by AuthMiddleware.
func CurrentUser(c *gin.Context) (User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return User{}, false
	}
	u, ok := v.(User)
	return u, ok
}

// RequirePermission guards a route group behind one access flag.
func RequirePermission(p Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			respondDetail(c, http.StatusUnauthorized, "Not authenticated")
			c.Abort()
			return
		}
		if !u.Has(p) {
			respondDetail(c, http.StatusForbidden, "Not enough permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
