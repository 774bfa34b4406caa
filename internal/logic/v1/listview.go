package v1

import (
	"context"
	"strings"
	"sync"

	"github.com/duynhne/user-web/internal/core/domain"
)

// Notices shown inside a dialog when the users API rejects a mutation.
const (
	NoticeCreateFailed = "Could not create the user. Please try again."
	NoticeUpdateFailed = "Could not update the user. Please try again."
	NoticeDeleteFailed = "Could not delete the user. Please try again."
)

// CreateDialog is the create form state owned by the list view.
type CreateDialog struct {
	Open   bool
	Draft  domain.Draft
	Errors Errors
	Notice string
}

// ListState is a render-ready copy of the list view.
type ListState struct {
	Users   []domain.User // rows matching Query, in collection order
	Total   int
	Query   string
	Loading bool
	Failed  bool
	Create  CreateDialog
}

// ListView owns the session's collection of known users, the search query
// and the create dialog. The mutex is never held across a users API call.
type ListView struct {
	users     domain.UserRepository
	validator *Validator

	mu      sync.Mutex
	items   []domain.User
	loaded  bool
	loading bool
	failed  bool
	query   string
	create  CreateDialog
}

// NewListView creates an empty, not yet loaded list view
func NewListView(users domain.UserRepository, validator *Validator) *ListView {
	return &ListView{users: users, validator: validator}
}

// EnsureLoaded issues the initial fetch the first time the list is displayed.
// It returns immediately when a fetch already happened or is outstanding.
func (l *ListView) EnsureLoaded(ctx context.Context) error {
	l.mu.Lock()
	if l.loaded || l.loading {
		l.mu.Unlock()
		return nil
	}
	l.loading = true
	l.mu.Unlock()

	return l.fetch(ctx)
}

// Reload fetches the collection again, replacing whatever is held.
func (l *ListView) Reload(ctx context.Context) error {
	l.mu.Lock()
	l.loading = true
	l.mu.Unlock()

	return l.fetch(ctx)
}

func (l *ListView) fetch(ctx context.Context) error {
	users, err := l.users.ListUsers(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	l.loaded = true
	if err != nil {
		l.failed = true
		l.items = nil
		return err
	}
	l.failed = false
	l.items = users
	return nil
}

// SetQuery replaces the search query. Filtering never touches the network.
func (l *ListView) SetQuery(q string) {
	l.mu.Lock()
	l.query = q
	l.mu.Unlock()
}

// Filter returns the users whose name contains query, ignoring case.
func Filter(users []domain.User, query string) []domain.User {
	out := make([]domain.User, 0, len(users))
	q := strings.ToLower(query)
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name), q) {
			out = append(out, u)
		}
	}
	return out
}

// Snapshot copies the current state for rendering
func (l *ListView) Snapshot() ListState {
	l.mu.Lock()
	defer l.mu.Unlock()

	create := l.create
	create.Errors = copyErrors(l.create.Errors)
	return ListState{
		Users:   Filter(l.items, l.query),
		Total:   len(l.items),
		Query:   l.query,
		Loading: l.loading,
		Failed:  l.failed,
		Create:  create,
	}
}

// OpenCreate shows the create dialog; a draft left from an earlier attempt is kept.
func (l *ListView) OpenCreate() {
	l.mu.Lock()
	l.create.Open = true
	l.create.Notice = ""
	l.mu.Unlock()
}

// CloseCreate hides the create dialog.
func (l *ListView) CloseCreate() {
	l.mu.Lock()
	l.create.Open = false
	l.mu.Unlock()
}

// SubmitCreate validates the draft in create mode and, when valid, posts it.
// Validation failures return the field errors and issue no request. A users
// API failure keeps the dialog open with the draft and a notice. On success
// the echoed record is appended and the dialog closes.
func (l *ListView) SubmitCreate(ctx context.Context, draft domain.Draft) (*domain.User, Errors, error) {
	errs := l.validator.Validate(ModeCreate, draft)

	l.mu.Lock()
	l.create.Open = true
	l.create.Draft = draft
	l.create.Errors = errs
	l.create.Notice = ""
	l.mu.Unlock()

	if !errs.Valid() {
		return nil, errs, nil
	}

	user, err := l.users.CreateUser(ctx, domain.NewCreateUserRequest(draft))

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.create.Notice = NoticeCreateFailed
		return nil, nil, err
	}
	l.items = append(l.items, *user)
	l.create = CreateDialog{}
	return user, nil, nil
}

// Remove drops a user from the collection after it was deleted elsewhere.
func (l *ListView) Remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.items[:0:0]
	for _, u := range l.items {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	l.items = kept
}

// Replace swaps in an edited record, keeping its position.
func (l *ListView) Replace(user domain.User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == user.ID {
			l.items[i] = user.Clone()
			return
		}
	}
}

func copyErrors(errs Errors) Errors {
	if errs == nil {
		return nil
	}
	out := make(Errors, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	return out
}
