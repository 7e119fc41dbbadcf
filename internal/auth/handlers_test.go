package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-dev/folio/internal/storage/memory"
	"github.com/folio-dev/folio/pkg/schema"
)

func authRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	issuer := NewTokenIssuer("test-secret", time.Hour)
	guard := NewGuard(store, issuer)
	handler := NewHandler(store, issuer, 4, false)

	r := gin.New()
	handler.Mount(r.Group("/api"), guard, func(c *gin.Context) { c.Next() })
	return r, store
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	req, _ := http.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope schema.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Error
}

func TestRegisterAndLogin(t *testing.T) {
	r, _ := authRouter(t)

	w := postJSON(r, "/api/auth/register", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created schema.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "alice", created.User.Username)
	assert.Equal(t, schema.RoleUser, created.User.Role, "open registration never grants admin")
	assert.NotEmpty(t, created.User.ID)
	assert.NotContains(t, w.Body.String(), "password")

	w = postJSON(r, "/api/auth/login", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cookies := w.Result().Cookies()
	var session, csrf *http.Cookie
	for _, c := range cookies {
		switch c.Name {
		case TokenCookie:
			session = c
		case CSRFCookie:
			csrf = c
		}
	}
	require.NotNil(t, session, "login must set the session cookie")
	require.NotNil(t, csrf, "login must set the CSRF cookie")
	assert.True(t, session.HttpOnly, "session cookie must be HTTP-only")
	assert.False(t, csrf.HttpOnly, "CSRF cookie must be script-readable")
}

func TestRegisterValidation(t *testing.T) {
	r, _ := authRouter(t)

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"missing password", map[string]string{"username": "alice"}, "Username and password are required."},
		{"short username", map[string]string{"username": "al", "password": "password123"}, "Username must be at least 3 characters."},
		{"short password", map[string]string{"username": "alice", "password": "short"}, "Password must be at least 8 characters."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(r, "/api/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, errorMessage(t, w))
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	r, _ := authRouter(t)

	body := map[string]string{"username": "alice", "password": "password123"}
	require.Equal(t, http.StatusCreated, postJSON(r, "/api/auth/register", body).Code)

	w := postJSON(r, "/api/auth/register", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username already exists", errorMessage(t, w))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	r, _ := authRouter(t)

	require.Equal(t, http.StatusCreated, postJSON(r, "/api/auth/register", map[string]string{
		"username": "alice", "password": "password123",
	}).Code)

	// Unknown user and wrong password yield the same message, so the
	// endpoint does not leak which usernames exist.
	for _, body := range []map[string]string{
		{"username": "nobody", "password": "password123"},
		{"username": "alice", "password": "wrong-password"},
	} {
		w := postJSON(r, "/api/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid username or password.", errorMessage(t, w))
	}
}

func TestLogoutClearsCookies(t *testing.T) {
	r, _ := authRouter(t)

	w := postJSON(r, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	for _, c := range w.Result().Cookies() {
		assert.True(t, c.MaxAge < 0, "cookie %s should be expired", c.Name)
	}
}

func TestMe(t *testing.T) {
	r, store := authRouter(t)

	require.Equal(t, http.StatusCreated, postJSON(r, "/api/auth/register", map[string]string{
		"username": "alice", "password": "password123",
	}).Code)

	user, err := store.UserByUsername(t.Context(), "alice")
	require.NoError(t, err)

	token, err := NewTokenIssuer("test-secret", time.Hour).Issue(user)
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got schema.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "alice", got.Username)

	// Anonymous access is refused.
	req, _ = http.NewRequest("GET", "/api/auth/me", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
