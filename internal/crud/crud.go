// Package crud builds the standard handler set for one entity family from a
// declarative Options value, so projects, qualifications, services, gallery
// images and the rest share a single create/read/update/delete/list
// implementation instead of duplicating it per entity.
package crud

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/folio-dev/folio/internal/config"
	"github.com/folio-dev/folio/internal/pagination"
	"github.com/folio-dev/folio/internal/storage"
	"github.com/folio-dev/folio/pkg/schema"
)

// recordKey is the gin context key under which ResolveID stores the record.
const recordKey = "folio.record"

// Options configures one resource. Every per-entity difference lives here;
// the handlers themselves are shared.
type Options struct {
	// Label and LabelPlural name the entity in error and status messages,
	// e.g. "project" / "projects".
	Label       string
	LabelPlural string

	// Path is the URL segment under /api; defaults to LabelPlural.
	Path string

	// Collection is the storage collection name; defaults to LabelPlural.
	Collection string

	// BuildPayload shapes a raw JSON body into the field map to persist.
	// Trimming and array normalization happen here.
	BuildPayload func(raw map[string]any) map[string]any

	// Required lists fields that must be meaningful on create.
	Required []string

	// Defaults fills fields absent from a create payload (array fields
	// default to empty slices, never null).
	Defaults map[string]any

	// SortKey orders listings; "-createdAt" when empty.
	SortKey string

	// Paginate switches the collection GET to {items, pagination} form.
	Paginate bool

	// PublicRead exposes GETs without authentication, with a Cache-Control
	// freshness hint. Otherwise reads are admin-only.
	PublicRead bool

	// PublicCreate exposes POST without authentication (guestbook, contact).
	// Such routes must be mounted with a rate limiter.
	PublicCreate bool

	// CacheMaxAge is the max-age in seconds for public GETs; 60 when zero.
	CacheMaxAge int

	// AllowBulkDelete permits collection DELETE in development mode.
	AllowBulkDelete bool

	// Mode is the injected operating mode; the bulk-delete gate is a pure
	// function of this value.
	Mode config.Mode
}

// Resource is the handler set for one entity family.
type Resource struct {
	store storage.DocumentStore
	opts  Options
}

// New builds a Resource, applying option defaults.
func New(store storage.DocumentStore, opts Options) *Resource {
	if opts.Path == "" {
		opts.Path = opts.LabelPlural
	}
	if opts.Collection == "" {
		opts.Collection = opts.LabelPlural
	}
	if opts.SortKey == "" {
		opts.SortKey = "-createdAt"
	}
	if opts.CacheMaxAge == 0 {
		opts.CacheMaxAge = 60
	}
	if opts.BuildPayload == nil {
		opts.BuildPayload = func(raw map[string]any) map[string]any { return raw }
	}
	return &Resource{store: store, opts: opts}
}

// Options returns the resolved configuration.
func (rs *Resource) Options() Options { return rs.opts }

// ResolveID is the route-parameter middleware for :id paths. Malformed IDs
// are rejected before any store query; missing records short-circuit with
// 404. The resolved record is attached to the context for the verb handlers.
func (rs *Resource) ResolveID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := uuid.Parse(id); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				gin.H{"error": fmt.Sprintf("Invalid %s id.", rs.opts.Label)})
			return
		}

		rec, err := rs.store.Get(c.Request.Context(), rs.opts.Collection, id)
		if err != nil {
			status, msg := rs.translate(err)
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		c.Set(recordKey, rec)
		c.Next()
	}
}

// Create handles POST /api/{resource}.
func (rs *Resource) Create(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body."})
		return
	}

	fields := rs.opts.BuildPayload(raw)

	for _, name := range rs.opts.Required {
		if !meaningful(fields[name]) {
			c.JSON(http.StatusBadRequest,
				gin.H{"error": fmt.Sprintf("%s is required.", capitalize(name))})
			return
		}
	}

	for name, def := range rs.opts.Defaults {
		if _, ok := fields[name]; !ok {
			fields[name] = def
		}
	}

	rec, err := rs.store.Insert(c.Request.Context(), rs.opts.Collection, fields)
	if err != nil {
		status, msg := rs.translate(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	slog.Info("record created",
		slog.String("resource", rs.opts.LabelPlural),
		slog.String("id", rec.ID))
	c.JSON(http.StatusCreated, rec)
}

// List handles GET /api/{resource}. Paginated resources return
// {items, pagination}; the rest return a plain array (never null).
func (rs *Resource) List(c *gin.Context) {
	ctx := c.Request.Context()

	if !rs.opts.Paginate {
		items, err := rs.store.List(ctx, rs.opts.Collection, storage.ListOptions{SortKey: rs.opts.SortKey})
		if err != nil {
			status, msg := rs.translate(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		c.JSON(http.StatusOK, items)
		return
	}

	page, limit := pagination.Clamp(c.Query("page"), c.Query("limit"))

	total, err := rs.store.Count(ctx, rs.opts.Collection)
	if err != nil {
		status, msg := rs.translate(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	win := pagination.Compute(page, total, limit)
	items, err := rs.store.List(ctx, rs.opts.Collection, storage.ListOptions{
		SortKey: rs.opts.SortKey,
		Offset:  win.Start,
		Limit:   limit,
	})
	if err != nil {
		status, msg := rs.translate(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, schema.Page{
		Items: items,
		Pagination: schema.PageInfo{
			Page:       page,
			Limit:      limit,
			TotalItems: total,
			TotalPages: win.TotalPages,
			HasNext:    win.HasNext,
			HasPrev:    win.HasPrev,
		},
	})
}

// Get handles GET /api/{resource}/:id. Pure projection of the record
// ResolveID attached; no store access.
func (rs *Resource) Get(c *gin.Context) {
	c.JSON(http.StatusOK, resolved(c))
}

// Update handles PUT /api/{resource}/:id under replace-if-meaningful
// semantics: a field is written only if the incoming value is present and,
// for strings and arrays, non-empty. An update can therefore never blank a
// field by omission.
func (rs *Resource) Update(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body."})
		return
	}

	fields := rs.opts.BuildPayload(raw)
	for name, val := range fields {
		if !meaningful(val) {
			delete(fields, name)
		}
	}

	rec, err := rs.store.Update(c.Request.Context(), rs.opts.Collection, resolved(c).ID, fields)
	if err != nil {
		status, msg := rs.translate(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Delete handles DELETE /api/{resource}/:id and echoes the pre-deletion
// snapshot.
func (rs *Resource) Delete(c *gin.Context) {
	rec, err := rs.store.Delete(c.Request.Context(), rs.opts.Collection, resolved(c).ID)
	if err != nil {
		status, msg := rs.translate(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	slog.Info("record deleted",
		slog.String("resource", rs.opts.LabelPlural),
		slog.String("id", rec.ID))
	c.JSON(http.StatusOK, rec)
}

// DeleteAll handles DELETE /api/{resource}. The purge is gated on the
// injected operating mode, not ambient process state.
func (rs *Resource) DeleteAll(c *gin.Context) {
	if !rs.bulkDeleteAvailable() {
		c.JSON(http.StatusForbidden, gin.H{"error": rs.bulkDeleteRefusal()})
		return
	}

	n, err := rs.store.DeleteAll(c.Request.Context(), rs.opts.Collection)
	if err != nil {
		status, msg := rs.translate(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	slog.Info("collection purged",
		slog.String("resource", rs.opts.LabelPlural),
		slog.Int("deleted", n))
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Deleted %d %s.", n, rs.opts.LabelPlural),
	})
}

// bulkDeleteAvailable reports whether the collection purge is enabled under
// the resource's options and the injected operating mode.
func (rs *Resource) bulkDeleteAvailable() bool {
	return rs.opts.AllowBulkDelete && rs.opts.Mode.IsDevelopment()
}

func (rs *Resource) bulkDeleteRefusal() string {
	return fmt.Sprintf("Deleting all %s is only allowed in development.", rs.opts.LabelPlural)
}

// resolved returns the record ResolveID stored on the context. Handlers on
// :id routes are only reachable through that middleware.
func resolved(c *gin.Context) schema.Record {
	return c.MustGet(recordKey).(schema.Record)
}

// meaningful implements the replace-if-meaningful policy: nil, empty strings
// and empty arrays are not written; booleans and other scalars always are.
func meaningful(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case []string:
		return len(t) > 0
	case []any:
		return len(t) > 0
	}
	return true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
