package v1

import (
	"context"
	"errors"
	"sync"

	"github.com/duynhne/user-web/internal/core/domain"
)

var errAPIDown = errors.New("users api unavailable")

// fakeRepository is an in-memory domain.UserRepository that records calls.
type fakeRepository struct {
	mu sync.Mutex

	users     []domain.User
	listErr   error
	getErr    error
	createErr error
	updateErr error
	deleteErr error
	nextID    int

	// gates block GetUser for an id until the channel is closed
	gates map[int]chan struct{}

	listCalls  int
	getCalls   []int
	created    []domain.CreateUserRequest
	updated    []domain.User
	deletedIDs []int
}

func newFakeRepository(users ...domain.User) *fakeRepository {
	return &fakeRepository{users: users, nextID: 11, gates: map[int]chan struct{}{}}
}

func (f *fakeRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.User, len(f.users))
	copy(out, f.users)
	return out, nil
}

func (f *fakeRepository) GetUser(ctx context.Context, id int) (*domain.User, error) {
	f.mu.Lock()
	f.getCalls = append(f.getCalls, id)
	gate := f.gates[id]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.ID == id {
			c := u.Clone()
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeRepository) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	u := domain.User{
		ID:       f.nextID,
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Website:  req.Website,
		Address:  &domain.Address{Street: req.Address},
	}
	f.nextID++
	return &u, nil
}

func (f *fakeRepository) UpdateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, user.Clone())
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	c := user.Clone()
	return &c, nil
}

func (f *fakeRepository) DeleteUser(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedIDs = append(f.deletedIDs, id)
	return f.deleteErr
}

func (f *fakeRepository) gate(id int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[id] = ch
	return ch
}

func (f *fakeRepository) getCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.getCalls)
}
