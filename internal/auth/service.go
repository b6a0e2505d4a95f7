package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/five82/pidash/internal/endpoint"
	"github.com/five82/pidash/internal/request"
)

// API endpoints of the device's auth service.
const (
	UserDataPath       = "api/v1/auth/user"
	LoginPath          = "api/v1/auth/login"
	RegisterPath       = "api/v1/auth/register"
	UpdatePasswordPath = "api/v1/auth/update_password"
)

const statusSuccess = "success"

// User is the profile of the signed-in user. Raw keeps the full object as
// sent by the device.
type User struct {
	Username string          `json:"username"`
	Raw      json.RawMessage `json:"-"`
}

// Result is the outcome of a login, registration or password change as
// reported by the server.
type Result struct {
	Success bool
	Message string
}

// Service calls the device's auth endpoints.
type Service struct {
	api endpoint.Requester
}

// NewService returns a Service that talks through api.
func NewService(api endpoint.Requester) *Service {
	return &Service{api: api}
}

// Authenticate verifies credentials. The session cookie set by the server
// lands in the client's jar.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Result, error) {
	var reply struct {
		Auth    bool   `json:"auth"`
		Message string `json:"message"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := s.api.Post(ctx, LoginPath, body, &reply); err != nil {
		return Result{}, fmt.Errorf("login: %w", err)
	}
	return Result{Success: reply.Auth, Message: reply.Message}, nil
}

// CreateUser registers a new account.
func (s *Service) CreateUser(ctx context.Context, username, password string) (Result, error) {
	body := map[string]string{"username": username, "password": password}
	res, err := s.postStatus(ctx, RegisterPath, body)
	if err != nil {
		return Result{}, fmt.Errorf("register: %w", err)
	}
	return res, nil
}

// ChangePassword updates the signed-in user's password.
func (s *Service) ChangePassword(ctx context.Context, currentPassword, newPassword string) (Result, error) {
	body := map[string]string{"currentPassword": currentPassword, "newPassword": newPassword}
	res, err := s.postStatus(ctx, UpdatePasswordPath, body)
	if err != nil {
		return Result{}, fmt.Errorf("update password: %w", err)
	}
	return res, nil
}

// GetUser fetches the current user's profile. A null user yields nil
// without error.
func (s *Service) GetUser(ctx context.Context) (*User, error) {
	var reply struct {
		User json.RawMessage `json:"user"`
	}
	if err := s.api.Get(ctx, UserDataPath, &reply); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return parseUser(reply.User)
}

func (s *Service) postStatus(ctx context.Context, path string, body any) (Result, error) {
	var reply struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := s.api.Post(ctx, path, body, &reply); err != nil {
		return Result{}, err
	}
	return Result{Success: reply.Status == statusSuccess, Message: reply.Message}, nil
}

func parseUser(raw json.RawMessage) (*User, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	user := &User{Raw: append(json.RawMessage(nil), trimmed...)}
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, user); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
	}
	return user, nil
}

// UserDataEndpoints is the fetch set behind the account view.
var UserDataEndpoints = request.Endpoints{{Label: "user", Path: UserDataPath}}

// UserData extracts the profile from a UserDataEndpoints fetch. It returns
// nil until the fetch has delivered a user.
func UserData(st request.State) (*User, error) {
	var reply struct {
		User json.RawMessage `json:"user"`
	}
	ok, err := st.Decode("user", &reply)
	if err != nil || !ok {
		return nil, err
	}
	return parseUser(reply.User)
}
