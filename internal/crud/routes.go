package crud

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Policy carries the cross-cutting middleware a resource's routes need. The
// crud package stays ignorant of how admin checks or rate limits are
// implemented.
type Policy struct {
	// RequireAdmin guards every write and, for non-public resources, reads.
	RequireAdmin gin.HandlerFunc

	// CreateLimit rate-limits public creates (guestbook, contact). Ignored
	// unless the resource declares PublicCreate.
	CreateLimit gin.HandlerFunc
}

// Mount wires the resource's handlers to HTTP verbs and paths under r,
// applying the uniform policy matrix:
//
//	GET    /{path}       public (cached) or admin-only
//	POST   /{path}       admin-only (or rate-limited public create)
//	DELETE /{path}       admin-only, development mode only
//	GET    /{path}/:id   public (cached) or admin-only
//	PUT    /{path}/:id   admin-only
//	DELETE /{path}/:id   admin-only
//
// ResolveID is registered once on the :id group, so it runs exactly once
// before any verb handler of a document route.
func (rs *Resource) Mount(r gin.IRouter, policy Policy) {
	group := r.Group("/" + rs.opts.Path)

	readGuard := policy.RequireAdmin
	if rs.opts.PublicRead {
		readGuard = CacheControl(rs.opts.CacheMaxAge)
	}

	createGuard := policy.RequireAdmin
	if rs.opts.PublicCreate && policy.CreateLimit != nil {
		createGuard = policy.CreateLimit
	}

	group.GET("", readGuard, rs.List)
	group.POST("", createGuard, rs.Create)
	// Availability is answered before authentication: when the purge is off,
	// every caller gets the same development-only refusal. The admin guard
	// still protects the destructive path.
	group.DELETE("", rs.bulkDeleteGate(), policy.RequireAdmin, rs.DeleteAll)

	doc := group.Group("/:id", rs.ResolveID())
	doc.GET("", readGuard, rs.Get)
	doc.PUT("", policy.RequireAdmin, rs.Update)
	doc.DELETE("", policy.RequireAdmin, rs.Delete)
}

// bulkDeleteGate refuses the collection purge while it is unavailable.
func (rs *Resource) bulkDeleteGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rs.bulkDeleteAvailable() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": rs.bulkDeleteRefusal()})
			return
		}
		c.Next()
	}
}

// CacheControl sets a freshness hint on GET responses. Other verbs pass
// through untouched.
func CacheControl(maxAge int) gin.HandlerFunc {
	value := fmt.Sprintf("public, max-age=%d", maxAge)
	return func(c *gin.Context) {
		if c.Request.Method == "GET" {
			c.Header("Cache-Control", value)
		}
		c.Next()
	}
}
