package client

import (
	"context"
	"errors"

	"github.com/folio-dev/folio/internal/pagination"
	"github.com/folio-dev/folio/pkg/schema"
)

// ErrSubmitInFlight is returned when Submit is called while a previous
// submit has not finished. The panel never runs two submits concurrently.
var ErrSubmitInFlight = errors.New("a submit is already in flight")

// ResourceAPI is the API binding a panel drives. *Resource implements it.
type ResourceAPI interface {
	List(ctx context.Context) ([]schema.Record, error)
	Create(ctx context.Context, fields map[string]any) (schema.Record, error)
	Update(ctx context.Context, id string, fields map[string]any) (schema.Record, error)
	Delete(ctx context.Context, id string) (schema.Record, error)
	DeleteAll(ctx context.Context) (string, error)
}

// LoadState is the panel's list-fetch state.
type LoadState int

const (
	LoadIdle LoadState = iota
	Loading
	Loaded
	LoadFailed
)

type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmSingle
	confirmAll
)

// PageSizeOptions is the fixed set of selectable page sizes.
var PageSizeOptions = []int{5, 10, 25, 50}

// DefaultPageSize is the page size a fresh panel starts with.
const DefaultPageSize = 10

// Descriptor declares one entity family for the generic panel: its API
// binding, empty form, and the optional mapping hooks. Nil hooks default to
// the identity.
type Descriptor struct {
	Label       string
	LabelPlural string
	API         ResourceAPI

	// EmptyForm is the form state after a reset.
	EmptyForm map[string]any

	// MapRecordToForm populates the form when editing begins.
	MapRecordToForm func(schema.Record) map[string]any

	// BuildSubmitPayload shapes the form into the request body.
	BuildSubmitPayload func(map[string]any) map[string]any

	// Normalize post-processes each record arriving from the API.
	Normalize func(schema.Record) schema.Record
}

// Panel is the generic admin CRUD state container: a create/edit form, the
// in-memory record list with client-side pagination, and confirm-gated
// deletes. One parameterized Panel replaces per-entity duplicate screens.
//
// A Panel is single-owner state, not safe for concurrent use; network calls
// run on the caller's goroutine. The list is mutated only by the response
// handlers of the panel's own methods, and a load sequence token discards
// stale list responses.
type Panel struct {
	desc Descriptor

	records []schema.Record
	state   LoadState
	loadErr string

	form       map[string]any
	formErr    string
	editing    string
	submitting bool

	confirm    confirmKind
	confirmID  string
	confirmErr string

	page     int
	pageSize int

	loadSeq uint64
}

// NewPanel builds a panel for the descriptor.
func NewPanel(desc Descriptor) *Panel {
	if desc.MapRecordToForm == nil {
		desc.MapRecordToForm = func(rec schema.Record) map[string]any {
			return copyForm(rec.Fields)
		}
	}
	if desc.BuildSubmitPayload == nil {
		desc.BuildSubmitPayload = copyForm
	}
	if desc.Normalize == nil {
		desc.Normalize = func(rec schema.Record) schema.Record { return rec }
	}

	return &Panel{
		desc:     desc,
		form:     copyForm(desc.EmptyForm),
		page:     1,
		pageSize: DefaultPageSize,
	}
}

// Load fetches the collection. A failed load keeps the previous records and
// retains the message for display; a stale response (superseded by a newer
// Load) is dropped entirely.
func (p *Panel) Load(ctx context.Context) error {
	p.state = Loading
	p.loadSeq++
	seq := p.loadSeq

	records, err := p.desc.API.List(ctx)

	if seq != p.loadSeq {
		return nil
	}

	if err != nil {
		p.state = LoadFailed
		p.loadErr = errorMessage(err)
		return err
	}

	for i := range records {
		records[i] = p.desc.Normalize(records[i])
	}
	p.records = records
	p.state = Loaded
	p.loadErr = ""
	p.clampPage()
	return nil
}

// Submit creates or updates, depending on whether an edit is active. On a
// structured API error the form is preserved and the message surfaced
// inline. A create response without an ID triggers a full refetch rather
// than appending a keyless record.
func (p *Panel) Submit(ctx context.Context) error {
	if p.submitting {
		return ErrSubmitInFlight
	}
	p.submitting = true
	defer func() { p.submitting = false }()

	payload := p.desc.BuildSubmitPayload(p.form)

	if p.editing != "" {
		rec, err := p.desc.API.Update(ctx, p.editing, payload)
		if err != nil {
			p.formErr = errorMessage(err)
			return err
		}
		rec = p.desc.Normalize(rec)
		for i := range p.records {
			if p.records[i].ID == rec.ID {
				p.records[i] = rec
				break
			}
		}
		p.resetForm()
		return nil
	}

	rec, err := p.desc.API.Create(ctx, payload)
	if err != nil {
		p.formErr = errorMessage(err)
		return err
	}

	if rec.ID == "" {
		if err := p.Load(ctx); err != nil {
			return err
		}
	} else {
		p.records = append(p.records, p.desc.Normalize(rec))
	}
	p.resetForm()
	return nil
}

// BeginEdit populates the form from the identified record and enters the
// editing state. It reports whether the record was found.
func (p *Panel) BeginEdit(id string) bool {
	for _, rec := range p.records {
		if rec.ID == id {
			p.form = p.desc.MapRecordToForm(rec)
			p.editing = id
			p.formErr = ""
			return true
		}
	}
	return false
}

// CancelEdit resets the form and leaves the editing state.
func (p *Panel) CancelEdit() { p.resetForm() }

// RequestDelete arms the confirm step for one record. No destructive call
// fires until ConfirmPending.
func (p *Panel) RequestDelete(id string) {
	p.confirm = confirmSingle
	p.confirmID = id
	p.confirmErr = ""
}

// RequestDeleteAll arms the confirm step for a full purge.
func (p *Panel) RequestDeleteAll() {
	p.confirm = confirmAll
	p.confirmID = ""
	p.confirmErr = ""
}

// CancelConfirm disarms any pending confirmation.
func (p *Panel) CancelConfirm() {
	p.confirm = confirmNone
	p.confirmID = ""
}

// ConfirmPending executes the armed deletion. On failure the list is left
// untouched and the message retained; on success the record(s) leave the
// in-memory list and the current page self-corrects if it fell off the end.
func (p *Panel) ConfirmPending(ctx context.Context) error {
	kind, id := p.confirm, p.confirmID
	p.CancelConfirm()

	switch kind {
	case confirmSingle:
		if _, err := p.desc.API.Delete(ctx, id); err != nil {
			p.confirmErr = errorMessage(err)
			return err
		}
		for i := range p.records {
			if p.records[i].ID == id {
				p.records = append(p.records[:i], p.records[i+1:]...)
				break
			}
		}
		p.clampPage()
	case confirmAll:
		if _, err := p.desc.API.DeleteAll(ctx); err != nil {
			p.confirmErr = errorMessage(err)
			return err
		}
		p.records = []schema.Record{}
		p.page = 1
	}
	return nil
}

// --- pagination ---

// SetPage moves to page n, clamped to the valid range.
func (p *Panel) SetPage(n int) {
	p.page = n
	p.clampPage()
}

// SetPageSize selects a size from PageSizeOptions and resets to page 1.
// Sizes outside the option set are ignored.
func (p *Panel) SetPageSize(size int) bool {
	for _, option := range PageSizeOptions {
		if size == option {
			p.pageSize = size
			p.page = 1
			return true
		}
	}
	return false
}

// PageRecords returns the records of the current page.
func (p *Panel) PageRecords() []schema.Record {
	win := pagination.Compute(p.page, len(p.records), p.pageSize)
	return p.records[win.Start:win.End]
}

// PageInfo describes the current window.
func (p *Panel) PageInfo() schema.PageInfo {
	win := pagination.Compute(p.page, len(p.records), p.pageSize)
	return schema.PageInfo{
		Page:       p.page,
		Limit:      p.pageSize,
		TotalItems: len(p.records),
		TotalPages: win.TotalPages,
		HasNext:    win.HasNext,
		HasPrev:    win.HasPrev,
	}
}

func (p *Panel) clampPage() {
	win := pagination.Compute(1, len(p.records), p.pageSize)
	if p.page > win.TotalPages {
		p.page = win.TotalPages
	}
	if p.page < 1 {
		p.page = 1
	}
}

// --- form and state accessors ---

// FormValue reads one form field.
func (p *Panel) FormValue(key string) any { return p.form[key] }

// SetFormValue writes one form field.
func (p *Panel) SetFormValue(key string, val any) { p.form[key] = val }

// Records returns the full in-memory sequence.
func (p *Panel) Records() []schema.Record { return p.records }

// State reports the list-fetch state.
func (p *Panel) State() LoadState { return p.state }

// LoadError is the message of the last failed load ("" when none).
func (p *Panel) LoadError() string { return p.loadErr }

// FormError is the inline message of the last failed submit ("" when none).
func (p *Panel) FormError() string { return p.formErr }

// ConfirmError is the message of the last failed deletion ("" when none).
func (p *Panel) ConfirmError() string { return p.confirmErr }

// Editing reports the active edit target, if any.
func (p *Panel) Editing() (string, bool) { return p.editing, p.editing != "" }

// ConfirmArmed reports whether a destructive action awaits confirmation.
func (p *Panel) ConfirmArmed() bool { return p.confirm != confirmNone }

// Submitting reports whether a submit is in flight.
func (p *Panel) Submitting() bool { return p.submitting }

func (p *Panel) resetForm() {
	p.form = copyForm(p.desc.EmptyForm)
	p.editing = ""
	p.formErr = ""
}

func copyForm(form map[string]any) map[string]any {
	out := make(map[string]any, len(form))
	for k, v := range form {
		out[k] = v
	}
	return out
}

// errorMessage prefers the server's envelope message over Go error text.
func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
