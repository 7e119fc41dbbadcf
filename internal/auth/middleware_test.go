package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/folio-dev/folio/internal/storage"
	"github.com/folio-dev/folio/internal/storage/memory"
	"github.com/folio-dev/folio/pkg/schema"
)

func guardedRouter(t *testing.T) (*gin.Engine, *memory.Store, *TokenIssuer, storage.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	hash, err := HashPassword("password123", 4)
	require.NoError(t, err)
	admin, err := store.CreateUser(t.Context(), "boss", "boss@example.com", hash, schema.RoleUser)
	require.NoError(t, err)
	admin, err = store.SetRole(t.Context(), admin.ID, schema.RoleAdmin)
	require.NoError(t, err)

	issuer := NewTokenIssuer("test-secret", time.Hour)
	guard := NewGuard(store, issuer)

	r := gin.New()
	r.POST("/admin", guard.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, store, issuer, admin
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGuardRejectsAnonymous(t *testing.T) {
	r, _, _, _ := guardedRouter(t)

	req, _ := http.NewRequest("POST", "/admin", nil)
	if w := serve(r, req); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestGuardBearerSkipsCSRF(t *testing.T) {
	r, _, issuer, admin := guardedRouter(t)

	token, err := issuer.Issue(admin)
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if w := serve(r, req); w.Code != http.StatusOK {
		t.Errorf("Bearer requests do not need a CSRF token, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestGuardCookieNeedsCSRF(t *testing.T) {
	r, _, issuer, admin := guardedRouter(t)

	token, err := issuer.Issue(admin)
	require.NoError(t, err)
	csrf, err := NewCSRFToken()
	require.NoError(t, err)

	// Session cookie alone: rejected on an unsafe method.
	req, _ := http.NewRequest("POST", "/admin", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	if w := serve(r, req); w.Code != http.StatusForbidden {
		t.Errorf("Cookie session without CSRF pair should be 403, got %d", w.Code)
	}

	// Cookie plus mismatched header: still rejected.
	req, _ = http.NewRequest("POST", "/admin", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	req.AddCookie(&http.Cookie{Name: CSRFCookie, Value: csrf})
	req.Header.Set(CSRFHeader, "not-the-token")
	if w := serve(r, req); w.Code != http.StatusForbidden {
		t.Errorf("Mismatched CSRF pair should be 403, got %d", w.Code)
	}

	// The full double-submit pair passes.
	req, _ = http.NewRequest("POST", "/admin", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	req.AddCookie(&http.Cookie{Name: CSRFCookie, Value: csrf})
	req.Header.Set(CSRFHeader, csrf)
	if w := serve(r, req); w.Code != http.StatusOK {
		t.Errorf("Matching CSRF pair should pass, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestGuardReReadsRole(t *testing.T) {
	r, store, issuer, admin := guardedRouter(t)

	token, err := issuer.Issue(admin)
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, serve(r, req).Code)

	// Demote the account. The token still names an admin, but the guard
	// consults the store, so the very next request is refused.
	_, err = store.SetRole(t.Context(), admin.ID, schema.RoleUser)
	require.NoError(t, err)

	req, _ = http.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if w := serve(r, req); w.Code != http.StatusForbidden {
		t.Errorf("Demoted account should lose access immediately, got %d", w.Code)
	}
}

func TestGuardUnknownSubject(t *testing.T) {
	r, _, issuer, _ := guardedRouter(t)

	token, err := issuer.Issue(storage.User{ID: "00000000-0000-0000-0000-000000000000", Role: schema.RoleAdmin})
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if w := serve(r, req); w.Code != http.StatusUnauthorized {
		t.Errorf("Token for a vanished account should be 401, got %d", w.Code)
	}
}
