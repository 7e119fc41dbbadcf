package client

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-dev/folio/pkg/schema"
)

// stubAPI lets each test script the backing resource and observe which calls
// the panel makes.
type stubAPI struct {
	listFn      func(ctx context.Context) ([]schema.Record, error)
	createFn    func(ctx context.Context, fields map[string]any) (schema.Record, error)
	updateFn    func(ctx context.Context, id string, fields map[string]any) (schema.Record, error)
	deleteFn    func(ctx context.Context, id string) (schema.Record, error)
	deleteAllFn func(ctx context.Context) (string, error)

	listCalls   int
	deleteCalls int
}

func (s *stubAPI) List(ctx context.Context) ([]schema.Record, error) {
	s.listCalls++
	if s.listFn == nil {
		return []schema.Record{}, nil
	}
	return s.listFn(ctx)
}

func (s *stubAPI) Create(ctx context.Context, fields map[string]any) (schema.Record, error) {
	if s.createFn == nil {
		return schema.Record{ID: "created", Fields: fields}, nil
	}
	return s.createFn(ctx, fields)
}

func (s *stubAPI) Update(ctx context.Context, id string, fields map[string]any) (schema.Record, error) {
	if s.updateFn == nil {
		return schema.Record{ID: id, Fields: fields}, nil
	}
	return s.updateFn(ctx, id, fields)
}

func (s *stubAPI) Delete(ctx context.Context, id string) (schema.Record, error) {
	s.deleteCalls++
	if s.deleteFn == nil {
		return schema.Record{ID: id}, nil
	}
	return s.deleteFn(ctx, id)
}

func (s *stubAPI) DeleteAll(ctx context.Context) (string, error) {
	if s.deleteAllFn == nil {
		return "purged", nil
	}
	return s.deleteAllFn(ctx)
}

func recordSet(n int) []schema.Record {
	records := make([]schema.Record, n)
	for i := range records {
		records[i] = schema.Record{
			ID:     fmt.Sprintf("rec-%02d", i),
			Fields: map[string]any{"title": fmt.Sprintf("Record %02d", i)},
		}
	}
	return records
}

func newTestPanel(api *stubAPI) *Panel {
	return NewPanel(Descriptor{
		Label:       "project",
		LabelPlural: "projects",
		API:         api,
		EmptyForm:   map[string]any{"title": ""},
	})
}

func TestPanelLoad(t *testing.T) {
	api := &stubAPI{listFn: func(ctx context.Context) ([]schema.Record, error) {
		return recordSet(3), nil
	}}
	panel := newTestPanel(api)

	require.NoError(t, panel.Load(t.Context()))
	assert.Equal(t, Loaded, panel.State())
	assert.Len(t, panel.Records(), 3)
	assert.Empty(t, panel.LoadError())
}

func TestPanelLoadFailureKeepsRecords(t *testing.T) {
	api := &stubAPI{}
	panel := newTestPanel(api)

	api.listFn = func(ctx context.Context) ([]schema.Record, error) {
		return recordSet(3), nil
	}
	require.NoError(t, panel.Load(t.Context()))

	api.listFn = func(ctx context.Context) ([]schema.Record, error) {
		return nil, &APIError{Status: 500, Message: "Database error occurred"}
	}
	err := panel.Load(t.Context())
	require.Error(t, err)
	assert.Equal(t, LoadFailed, panel.State())
	assert.Equal(t, "Database error occurred", panel.LoadError())
	assert.Len(t, panel.Records(), 3, "a failed reload must not clobber the list")
}

func TestPanelSubmitCreateAppends(t *testing.T) {
	panel := newTestPanel(&stubAPI{})
	panel.SetFormValue("title", "New thing")

	require.NoError(t, panel.Submit(t.Context()))
	require.Len(t, panel.Records(), 1)
	assert.Equal(t, "created", panel.Records()[0].ID)
	assert.Equal(t, "", panel.FormValue("title"), "form resets after a successful submit")
}

func TestPanelCreateWithoutIDRefetches(t *testing.T) {
	// Some backends answer a create with a body that lacks the identifier.
	// Appending that record would leave an uneditable ghost row, so the panel
	// refetches the whole list instead.
	api := &stubAPI{
		createFn: func(ctx context.Context, fields map[string]any) (schema.Record, error) {
			return schema.Record{Fields: fields}, nil
		},
		listFn: func(ctx context.Context) ([]schema.Record, error) {
			return recordSet(4), nil
		},
	}
	panel := newTestPanel(api)

	require.NoError(t, panel.Submit(t.Context()))
	assert.Equal(t, 1, api.listCalls, "expected a follow-up list call")
	assert.Len(t, panel.Records(), 4)
	for _, rec := range panel.Records() {
		assert.NotEmpty(t, rec.ID)
	}
}

func TestPanelSubmitErrorPreservesForm(t *testing.T) {
	api := &stubAPI{
		createFn: func(ctx context.Context, fields map[string]any) (schema.Record, error) {
			return schema.Record{}, &APIError{Status: 400, Message: "Title is required."}
		},
	}
	panel := newTestPanel(api)
	panel.SetFormValue("title", "draft text")

	require.Error(t, panel.Submit(t.Context()))
	assert.Equal(t, "Title is required.", panel.FormError())
	assert.Equal(t, "draft text", panel.FormValue("title"), "a failed submit must not wipe the draft")
	assert.Empty(t, panel.Records())
}

func TestPanelSubmitReentrancy(t *testing.T) {
	panel := newTestPanel(nil)
	api := &stubAPI{}
	api.createFn = func(ctx context.Context, fields map[string]any) (schema.Record, error) {
		// A second submit while this one is in flight must be refused.
		assert.ErrorIs(t, panel.Submit(ctx), ErrSubmitInFlight)
		return schema.Record{ID: "created"}, nil
	}
	panel.desc.API = api

	require.NoError(t, panel.Submit(t.Context()))
	assert.False(t, panel.Submitting())
}

func TestPanelEditFlow(t *testing.T) {
	api := &stubAPI{listFn: func(ctx context.Context) ([]schema.Record, error) {
		return recordSet(3), nil
	}}
	panel := newTestPanel(api)
	require.NoError(t, panel.Load(t.Context()))

	assert.False(t, panel.BeginEdit("no-such-id"))

	require.True(t, panel.BeginEdit("rec-01"))
	id, editing := panel.Editing()
	assert.True(t, editing)
	assert.Equal(t, "rec-01", id)
	assert.Equal(t, "Record 01", panel.FormValue("title"))

	panel.SetFormValue("title", "Renamed")
	require.NoError(t, panel.Submit(t.Context()))

	_, editing = panel.Editing()
	assert.False(t, editing, "a successful update leaves the editing state")
	assert.Len(t, panel.Records(), 3, "updates replace in place, never append")
	assert.Equal(t, "Renamed", panel.Records()[1].String("title"))

	panel.BeginEdit("rec-00")
	panel.CancelEdit()
	_, editing = panel.Editing()
	assert.False(t, editing)
	assert.Equal(t, "", panel.FormValue("title"))
}

func TestPanelDeleteNeedsConfirmation(t *testing.T) {
	api := &stubAPI{listFn: func(ctx context.Context) ([]schema.Record, error) {
		return recordSet(3), nil
	}}
	panel := newTestPanel(api)
	require.NoError(t, panel.Load(t.Context()))

	panel.RequestDelete("rec-01")
	assert.True(t, panel.ConfirmArmed())
	assert.Zero(t, api.deleteCalls, "arming must not touch the API")

	panel.CancelConfirm()
	assert.False(t, panel.ConfirmArmed())
	require.NoError(t, panel.ConfirmPending(t.Context()))
	assert.Zero(t, api.deleteCalls, "a cancelled confirm fires nothing")

	panel.RequestDelete("rec-01")
	require.NoError(t, panel.ConfirmPending(t.Context()))
	assert.Equal(t, 1, api.deleteCalls)
	assert.Len(t, panel.Records(), 2)
	assert.False(t, panel.ConfirmArmed())
}

func TestPanelDeleteFailureKeepsList(t *testing.T) {
	api := &stubAPI{
		listFn: func(ctx context.Context) ([]schema.Record, error) {
			return recordSet(3), nil
		},
		deleteFn: func(ctx context.Context, id string) (schema.Record, error) {
			return schema.Record{}, &APIError{Status: 500, Message: "Database error occurred"}
		},
	}
	panel := newTestPanel(api)
	require.NoError(t, panel.Load(t.Context()))

	panel.RequestDelete("rec-01")
	require.Error(t, panel.ConfirmPending(t.Context()))
	assert.Equal(t, "Database error occurred", panel.ConfirmError())
	assert.Len(t, panel.Records(), 3)
}

func TestPanelDeleteAll(t *testing.T) {
	api := &stubAPI{listFn: func(ctx context.Context) ([]schema.Record, error) {
		return recordSet(12), nil
	}}
	panel := newTestPanel(api)
	require.NoError(t, panel.Load(t.Context()))
	panel.SetPage(2)

	panel.RequestDeleteAll()
	require.NoError(t, panel.ConfirmPending(t.Context()))
	assert.Empty(t, panel.Records())
	assert.Equal(t, 1, panel.PageInfo().Page)
}

func TestPanelPagination(t *testing.T) {
	api := &stubAPI{listFn: func(ctx context.Context) ([]schema.Record, error) {
		return recordSet(12), nil
	}}
	panel := newTestPanel(api)
	require.NoError(t, panel.Load(t.Context()))

	info := panel.PageInfo()
	assert.Equal(t, 1, info.Page)
	assert.Equal(t, DefaultPageSize, info.Limit)
	assert.Equal(t, 2, info.TotalPages)
	assert.Len(t, panel.PageRecords(), 10)

	panel.SetPage(2)
	assert.Len(t, panel.PageRecords(), 2)

	// Page numbers beyond the end clamp instead of showing a blank page.
	panel.SetPage(99)
	assert.Equal(t, 2, panel.PageInfo().Page)

	assert.False(t, panel.SetPageSize(7), "sizes outside the option set are refused")
	assert.Equal(t, DefaultPageSize, panel.PageInfo().Limit)

	require.True(t, panel.SetPageSize(5))
	assert.Equal(t, 1, panel.PageInfo().Page, "changing the size returns to page 1")
	assert.Equal(t, 3, panel.PageInfo().TotalPages)
}

func TestPanelPageSelfCorrectsAfterDelete(t *testing.T) {
	api := &stubAPI{listFn: func(ctx context.Context) ([]schema.Record, error) {
		return recordSet(11), nil
	}}
	panel := newTestPanel(api)
	require.NoError(t, panel.Load(t.Context()))
	require.True(t, panel.SetPageSize(5))

	panel.SetPage(3) // the lone 11th record
	require.Len(t, panel.PageRecords(), 1)

	panel.RequestDelete(panel.PageRecords()[0].ID)
	require.NoError(t, panel.ConfirmPending(t.Context()))

	assert.Equal(t, 2, panel.PageInfo().Page, "an emptied trailing page falls back to the previous one")
	assert.Len(t, panel.PageRecords(), 5)
}

func TestErrorMessagePrefersEnvelope(t *testing.T) {
	assert.Equal(t, "Admin access required.",
		errorMessage(&APIError{Status: 403, Message: "Admin access required."}))
	assert.Equal(t, "plain failure", errorMessage(errors.New("plain failure")))
}
