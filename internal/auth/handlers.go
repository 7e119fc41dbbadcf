package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/folio-dev/folio/internal/storage"
	"github.com/folio-dev/folio/pkg/schema"
)

// Handler serves the /api/auth endpoints.
type Handler struct {
	users         storage.UserStore
	tokens        *TokenIssuer
	bcryptCost    int
	secureCookies bool
}

func NewHandler(users storage.UserStore, tokens *TokenIssuer, bcryptCost int, secureCookies bool) *Handler {
	return &Handler{
		users:         users,
		tokens:        tokens,
		bcryptCost:    bcryptCost,
		secureCookies: secureCookies,
	}
}

// Mount wires the auth routes. Register and login go through the rate
// limiter; logout and me do not.
func (h *Handler) Mount(r gin.IRouter, guard *Guard, limit gin.HandlerFunc) {
	group := r.Group("/auth")
	group.POST("/register", limit, h.Register)
	group.POST("/login", limit, h.Login)
	group.POST("/logout", h.Logout)
	group.GET("/me", guard.RequireAuth(), h.Me)
}

// Register handles open registration. The role is always "user"; accounts
// are never self-elevated.
func (h *Handler) Register(c *gin.Context) {
	var creds schema.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required."})
		return
	}

	if len(creds.Username) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username must be at least 3 characters."})
		return
	}
	if len(creds.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters."})
		return
	}

	hash, err := HashPassword(creds.Password, h.bcryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error occurred"})
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), creds.Username, creds.Email, hash, schema.RoleUser)
	if err != nil {
		var dup *storage.DuplicateError
		if errors.As(err, &dup) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s already exists", dup.Field)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error occurred"})
		return
	}

	slog.Info("user registered", slog.String("username", user.Username))
	c.JSON(http.StatusCreated, schema.AuthResponse{User: user.Public()})
}

// Login verifies the credential and establishes the cookie session: an
// HTTP-only token cookie plus a readable CSRF cookie for the double-submit
// check.
func (h *Handler) Login(c *gin.Context) {
	var creds schema.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required."})
		return
	}

	user, err := h.users.UserByUsername(c.Request.Context(), creds.Username)
	if err != nil || !CheckPassword(user.PasswordHash, creds.Password) {
		// Same message for unknown user and wrong password.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password."})
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error occurred"})
		return
	}

	csrf, err := NewCSRFToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error occurred"})
		return
	}

	maxAge := int(h.tokens.TTL().Seconds())
	c.SetCookie(TokenCookie, token, maxAge, "/", "", h.secureCookies, true)
	c.SetCookie(CSRFCookie, csrf, maxAge, "/", "", h.secureCookies, false)

	slog.Info("user logged in", slog.String("username", user.Username))
	c.JSON(http.StatusOK, schema.AuthResponse{User: user.Public()})
}

// Logout clears both session cookies.
func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(TokenCookie, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(CSRFCookie, "", -1, "/", "", h.secureCookies, false)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

// Me returns the authenticated account.
func (h *Handler) Me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required."})
		return
	}
	c.JSON(http.StatusOK, user.Public())
}
