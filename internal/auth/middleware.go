package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/folio-dev/folio/internal/storage"
	"github.com/folio-dev/folio/pkg/schema"
)

const (
	// TokenCookie carries the session JWT. HTTP-only.
	TokenCookie = "folio_token"
	// CSRFCookie is the readable half of the double-submit pair.
	CSRFCookie = "folio_csrf"
	// CSRFHeader must echo the CSRF cookie on unsafe cookie-authenticated
	// requests.
	CSRFHeader = "X-CSRF-Token"

	ctxUserKey = "folio.user"
)

// Guard authenticates requests and enforces roles. The subject's role is
// re-read from the user store on every request, so a revoked admin loses
// access on the very next call.
type Guard struct {
	users  storage.UserStore
	tokens *TokenIssuer
}

func NewGuard(users storage.UserStore, tokens *TokenIssuer) *Guard {
	return &Guard{users: users, tokens: tokens}
}

// RequireAuth admits any authenticated user and stores the account on the
// context.
func (g *Guard) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		g.authenticate(c, schema.Role(""))
	}
}

// RequireAdmin admits only authenticated admins.
func (g *Guard) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		g.authenticate(c, schema.RoleAdmin)
	}
}

func (g *Guard) authenticate(c *gin.Context, need schema.Role) {
	raw, fromCookie := extractToken(c)
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required."})
		return
	}

	claims, err := g.tokens.Parse(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session."})
		return
	}

	// Cookie-authenticated unsafe methods need the double-submit pair.
	if fromCookie && isUnsafe(c.Request.Method) && !csrfValid(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid CSRF token."})
		return
	}

	user, err := g.users.UserByID(c.Request.Context(), claims.Subject)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session."})
		return
	}

	if need == schema.RoleAdmin && user.Role != schema.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required."})
		return
	}

	c.Set(ctxUserKey, user)
	c.Next()
}

// CurrentUser returns the account a guard attached to the context.
func CurrentUser(c *gin.Context) (storage.User, bool) {
	val, ok := c.Get(ctxUserKey)
	if !ok {
		return storage.User{}, false
	}
	user, ok := val.(storage.User)
	return user, ok
}

// extractToken prefers the session cookie and falls back to a bearer header.
func extractToken(c *gin.Context) (raw string, fromCookie bool) {
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie, true
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer "), false
	}
	return "", false
}

func isUnsafe(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

func csrfValid(c *gin.Context) bool {
	cookie, err := c.Cookie(CSRFCookie)
	if err != nil || cookie == "" {
		return false
	}
	header := c.GetHeader(CSRFHeader)
	return subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) == 1
}

// NewCSRFToken returns a fresh random token for the double-submit cookie.
func NewCSRFToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
