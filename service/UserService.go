// Package service is the client side of the gateway: a thin wrapper around the /api/users REST calls.
//
// Every operation issues exactly one request. Any transport failure or non-2xx status is logged with its
// detail and returned as an *OperationFailedError whose text is safe to show to a user. Nothing is retried.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"UserManagerService/commands"
	"UserManagerService/models"
)

// UsersPath is the resource path of the user collection on the gateway.
const UsersPath = "/api/users"

// Operation names the user-facing action an OperationFailedError belongs to.
type Operation string

const (
	OpFetch  Operation = "fetch"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ErrOperationFailed is matched by every *OperationFailedError through errors.Is.
var ErrOperationFailed = errors.New("operation failed")

// OperationFailedError is the only error the service returns.
type OperationFailedError struct {
	Op Operation
}

func (e *OperationFailedError) Error() string {
	switch e.Op {
	case OpFetch:
		return "Failed to fetch users"
	case OpCreate:
		return "Failed to create user"
	case OpUpdate:
		return "Failed to update user"
	case OpDelete:
		return "Failed to delete user"
	}
	return "Failed to " + string(e.Op) + " user"
}

// Is reports whether target is ErrOperationFailed.
func (e *OperationFailedError) Is(target error) bool {
	return target == ErrOperationFailed
}

// UserService calls the gateway at a fixed base URL.
type UserService struct {
	baseURL string
	client  *http.Client
	log     *logrus.Logger
}

// Option configures a UserService.
type Option func(*UserService)

// WithHTTPClient sets the client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(s *UserService) { s.client = c }
}

// WithLogger sets the logger failures are reported to.
func WithLogger(log *logrus.Logger) Option {
	return func(s *UserService) { s.log = log }
}

// NewUserService returns a service for the gateway at baseURL (e.g. http://localhost:3001).
func NewUserService(baseURL string, opts ...Option) *UserService {
	s := &UserService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.do(ctx, OpFetch, http.MethodGet, UsersPath, nil, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// Get returns the user with the given id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.do(ctx, OpFetch, http.MethodGet, userPath(id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create sends data to the gateway and returns the created user, including its assigned id.
func (s *UserService) Create(ctx context.Context, data commands.SaveUserCommand) (*models.User, error) {
	var u models.User
	if err := s.do(ctx, OpCreate, http.MethodPost, UsersPath, data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Update replaces the user with the given id by data and returns the gateway's copy.
func (s *UserService) Update(ctx context.Context, id string, data commands.SaveUserCommand) (*models.User, error) {
	var u models.User
	if err := s.do(ctx, OpUpdate, http.MethodPut, userPath(id), data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Delete removes the user with the given id.
func (s *UserService) Delete(ctx context.Context, id string) (bool, error) {
	if err := s.do(ctx, OpDelete, http.MethodDelete, userPath(id), nil, nil); err != nil {
		return false, err
	}
	return true, nil
}

func userPath(id string) string {
	return UsersPath + "/" + url.PathEscape(id)
}

// do performs one request. body is JSON-encoded when non-nil; out is decoded from a 2xx response when non-nil.
func (s *UserService) do(ctx context.Context, op Operation, method, path string, body, out interface{}) error {
	fail := func(err error) error {
		s.log.WithFields(logrus.Fields{
			"operation": string(op),
			"request":   method + " " + path,
		}).Error(err.Error())
		return &OperationFailedError{Op: op}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fail(fmt.Errorf("encoding request body: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return fail(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fail(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fail(fmt.Errorf("decoding response body: %w", err))
	}
	return nil
}
