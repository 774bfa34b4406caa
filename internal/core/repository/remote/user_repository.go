package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/duynhne/user-web/internal/core"
	"github.com/duynhne/user-web/internal/core/domain"
)

// maxErrorBody caps how much of a failed response body ends up in an error
const maxErrorBody = 512

// UserRepository implements domain.UserRepository against the users REST API
type UserRepository struct {
	baseURL    string
	httpClient *http.Client
}

// NewUserRepository creates a repository over the configured API client
func NewUserRepository(client *core.APIClient) *UserRepository {
	return &UserRepository{
		baseURL:    client.BaseURL,
		httpClient: client.HTTPClient,
	}
}

// ListUsers retrieves every user (GET /users)
func (r *UserRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := r.do(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// GetUser retrieves one user (GET /users/{id})
func (r *UserRepository) GetUser(ctx context.Context, id int) (*domain.User, error) {
	var user domain.User
	if err := r.do(ctx, http.MethodGet, userPath(id), nil, &user); err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

// CreateUser posts a new user (POST /users) and returns the echoed record
func (r *UserRepository) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	var user domain.User
	if err := r.do(ctx, http.MethodPost, "/users", req, &user); err != nil {
		return nil, fmt.Errorf("create user %q: %w", req.Name, err)
	}
	return &user, nil
}

// UpdateUser replaces a user (PUT /users/{id}) and returns the accepted record
func (r *UserRepository) UpdateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	var accepted domain.User
	if err := r.do(ctx, http.MethodPut, userPath(user.ID), user, &accepted); err != nil {
		return nil, fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return &accepted, nil
}

// DeleteUser removes a user (DELETE /users/{id}); the body is ignored
func (r *UserRepository) DeleteUser(ctx context.Context, id int) error {
	if err := r.do(ctx, http.MethodDelete, userPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

func userPath(id int) string {
	return "/users/" + strconv.Itoa(id)
}

// do sends one request and decodes a JSON response into out when out is non-nil.
// 404 maps to domain.ErrUserNotFound, every other non-2xx to domain.ErrUpstream.
func (r *UserRepository) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request users api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrUserNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %d - %s", domain.ErrUpstream, resp.StatusCode, string(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrUpstream, err)
	}
	return nil
}
