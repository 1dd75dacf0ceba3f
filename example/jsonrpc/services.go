package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mnehpets/onerpc/jsonrpc"
)

// MathService is registered under "math".
type MathService struct{}

type AddParams struct {
	A int `json:"a"`
	B int `json:"b"`
}

func (MathService) Add(ctx context.Context, p AddParams) (int, error) {
	return p.A + p.B, nil
}

type DivideParams struct {
	Dividend float64 `json:"dividend"`
	Divisor  float64 `json:"divisor" validate:"ne=0"`
}

func (MathService) Divide(ctx context.Context, p DivideParams) (float64, error) {
	return p.Dividend / p.Divisor, nil
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserService keeps users in memory. It is registered under "users".
type UserService struct {
	logger *slog.Logger

	mu    sync.RWMutex
	users map[string]User
}

func NewUserService(logger *slog.Logger) *UserService {
	return &UserService{logger: logger, users: make(map[string]User)}
}

type CreateUserParams struct {
	ID    string `json:"id" validate:"notblank,pattern=^[a-z0-9-]+$"`
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"required,email"`
}

func (s *UserService) Create(ctx context.Context, p CreateUserParams) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[p.ID]; exists {
		return User{}, jsonrpc.NewError("user_exists", "User already exists").WithData(map[string]string{"id": p.ID})
	}
	u := User(p)
	s.users[p.ID] = u
	s.logger.InfoContext(ctx, "user created", "user_id", u.ID)
	return u, nil
}

// GetUserParams binds "users.Get/<id>".
type GetUserParams struct {
	_  struct{} `route:"/{id}"`
	ID string   `path:"id"`
}

func (s *UserService) Get(ctx context.Context, p GetUserParams) (User, error) {
	return s.lookup(p.ID)
}

// FieldParams binds "users.Field/<id>[/<field>]". Without a field the whole
// user is returned.
type FieldParams struct {
	_     struct{} `route:"/{id}/{field}"`
	ID    string   `path:"id"`
	Field *string  `path:"field"`
}

func (s *UserService) Field(ctx context.Context, p FieldParams) (any, error) {
	u, err := s.lookup(p.ID)
	if err != nil {
		return nil, err
	}
	if p.Field == nil {
		return u, nil
	}
	switch *p.Field {
	case "id":
		return u.ID, nil
	case "name":
		return u.Name, nil
	case "email":
		return u.Email, nil
	}
	return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "Unknown field").WithData(*p.Field)
}

// RenameParams binds "users.Rename/<id>" with the new name as params.
type RenameParams struct {
	_    struct{} `route:"/{id}"`
	ID   string   `path:"id"`
	Body struct {
		Name string `json:"name" validate:"notblank"`
	} `body:""`
}

func (s *UserService) Rename(ctx context.Context, p RenameParams) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[p.ID]
	if !ok {
		return User{}, errUserNotFound(p.ID)
	}
	u.Name = p.Body.Name
	s.users[p.ID] = u
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *UserService) lookup(id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, errUserNotFound(id)
	}
	return u, nil
}

func errUserNotFound(id string) *jsonrpc.Error {
	return jsonrpc.NewError("user_not_found", "User not found").WithData(map[string]string{"id": id})
}

// ExcludedMethods hides Reset from callers.
func (s *UserService) ExcludedMethods() []string { return []string{"Reset"} }

// Reset drops every user. Used by tests.
func (s *UserService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.users)
	return nil
}

// registerServices registers the sample services and the introspection
// method on reg.
func registerServices(reg *jsonrpc.Registry, logger *slog.Logger) error {
	if err := reg.RegisterService("math", MathService{}); err != nil {
		return err
	}
	if err := reg.RegisterService("users", NewUserService(logger)); err != nil {
		return err
	}
	return reg.Register(jsonrpc.Func0("rpc.methods", func(ctx context.Context) ([]string, error) {
		return reg.Methods(), nil
	}))
}
