package v1

import (
	"context"
	"errors"
	"sync"

	"github.com/duynhne/user-web/internal/core/domain"
	"github.com/duynhne/user-web/middleware"
	"go.opentelemetry.io/otel/attribute"
)

// ErrStaleResponse reports a users API response that arrived after the
// detail view had already moved on to another request. It was discarded.
var ErrStaleResponse = errors.New("stale response discarded")

// EditDialog is the edit form state owned by the detail view.
type EditDialog struct {
	Open   bool
	Draft  domain.Draft
	Errors Errors
	Notice string
}

// DeleteDialog is the delete confirmation state owned by the detail view.
type DeleteDialog struct {
	Open   bool
	Notice string
}

// DetailState is a render-ready copy of the detail view.
type DetailState struct {
	ID      int
	Loading bool
	Failed  bool
	User    *domain.User // canonical record, nil until loaded
	Edit    EditDialog
	Delete  DeleteDialog
}

// DetailView owns one record: data is the canonical copy shown in the
// summary, working is the copy edits are applied to. Every fetch and update
// is tagged with a generation; a response whose generation is no longer the
// latest is discarded.
type DetailView struct {
	users     domain.UserRepository
	validator *Validator

	mu      sync.Mutex
	id      int
	gen     uint64
	loaded  bool
	loading bool
	failed  bool
	data    *domain.User
	working domain.User
	edit    EditDialog
	del     DeleteDialog
}

// NewDetailView creates an empty detail view
func NewDetailView(users domain.UserRepository, validator *Validator) *DetailView {
	return &DetailView{users: users, validator: validator}
}

// Load fetches the record for id, replacing both the canonical and working
// copies. Failure sets the error flag. If another Load or Reset happened
// while this one was outstanding, its result is dropped and
// ErrStaleResponse is returned.
func (d *DetailView) Load(ctx context.Context, id int) error {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	if d.id != id {
		d.data = nil
		d.working = domain.User{}
		d.edit = EditDialog{}
		d.del = DeleteDialog{}
	}
	d.id = id
	d.loading = true
	d.failed = false
	d.mu.Unlock()

	user, err := d.users.GetUser(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		middleware.AddSpanEvent(ctx, "detail.stale_response",
			attribute.Int("user.id", id),
			attribute.Int("detail.current_id", d.id),
		)
		return ErrStaleResponse
	}
	d.loading = false
	d.loaded = true
	if err != nil {
		d.failed = true
		d.data = nil
		d.working = domain.User{}
		return err
	}
	canonical := user.Clone()
	d.data = &canonical
	d.working = user.Clone()
	return nil
}

// EnsureLoaded loads id unless it is already the displayed record.
func (d *DetailView) EnsureLoaded(ctx context.Context, id int) error {
	d.mu.Lock()
	current := d.loaded && d.id == id && !d.failed
	d.mu.Unlock()
	if current {
		return nil
	}
	return d.Load(ctx, id)
}

// Reset forgets the displayed record, as when the view is left. Outstanding
// responses are discarded when they arrive.
func (d *DetailView) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.id = 0
	d.loaded = false
	d.loading = false
	d.failed = false
	d.data = nil
	d.working = domain.User{}
	d.edit = EditDialog{}
	d.del = DeleteDialog{}
}

// Snapshot copies the current state for rendering
func (d *DetailView) Snapshot() DetailState {
	d.mu.Lock()
	defer d.mu.Unlock()

	var user *domain.User
	if d.data != nil {
		u := d.data.Clone()
		user = &u
	}
	edit := d.edit
	edit.Errors = copyErrors(d.edit.Errors)
	return DetailState{
		ID:      d.id,
		Loading: d.loading,
		Failed:  d.failed,
		User:    user,
		Edit:    edit,
		Delete:  d.del,
	}
}

// OpenEdit shows the edit dialog seeded from the working copy.
func (d *DetailView) OpenEdit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.edit = EditDialog{Open: true, Draft: domain.DraftFromUser(d.working)}
}

// CancelEdit hides the edit dialog and drops unsaved changes from the working copy.
func (d *DetailView) CancelEdit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.edit = EditDialog{}
	if d.data != nil {
		d.working = d.data.Clone()
	}
}

// SubmitEdit applies the draft to the working copy and validates it in edit
// mode. Invalid drafts return field errors and issue no request. A valid
// working copy is sent in full; on success it becomes the canonical record
// and the dialog closes. A users API failure leaves the dialog open with a
// notice.
func (d *DetailView) SubmitEdit(ctx context.Context, draft domain.Draft) (*domain.User, Errors, error) {
	d.mu.Lock()
	if d.data == nil {
		d.mu.Unlock()
		return nil, nil, domain.ErrUserNotFound
	}
	d.working = draft.ApplyTo(d.working)
	d.edit.Open = true
	d.edit.Draft = domain.DraftFromUser(d.working)
	d.edit.Notice = ""
	errs := d.validator.Validate(ModeEdit, d.edit.Draft)
	d.edit.Errors = errs
	if !errs.Valid() {
		d.mu.Unlock()
		return nil, errs, nil
	}
	gen := d.gen
	payload := d.working.Clone()
	d.mu.Unlock()

	_, err := d.users.UpdateUser(ctx, payload)

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return nil, nil, ErrStaleResponse
	}
	if err != nil {
		d.edit.Notice = NoticeUpdateFailed
		return nil, nil, err
	}
	canonical := payload.Clone()
	d.data = &canonical
	d.edit = EditDialog{}
	return &payload, nil, nil
}

// OpenDelete shows the delete confirmation.
func (d *DetailView) OpenDelete() {
	d.mu.Lock()
	d.del = DeleteDialog{Open: true}
	d.mu.Unlock()
}

// CancelDelete hides the delete confirmation.
func (d *DetailView) CancelDelete() {
	d.mu.Lock()
	d.del = DeleteDialog{}
	d.mu.Unlock()
}

// ConfirmDelete deletes the displayed record. On success the view is
// cleared and the deleted id returned; on failure the confirmation stays
// open with a notice.
func (d *DetailView) ConfirmDelete(ctx context.Context) (int, error) {
	d.mu.Lock()
	id := d.id
	gen := d.gen
	d.del.Open = true
	d.del.Notice = ""
	d.mu.Unlock()

	if id == 0 {
		return 0, domain.ErrUserNotFound
	}

	err := d.users.DeleteUser(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		if gen == d.gen {
			d.del.Notice = NoticeDeleteFailed
		}
		return id, err
	}
	if gen == d.gen {
		d.gen++
		d.loaded = false
		d.data = nil
		d.working = domain.User{}
		d.edit = EditDialog{}
		d.del = DeleteDialog{}
	}
	return id, nil
}
