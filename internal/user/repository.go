package user

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid name or password")
	ErrNameExists         = errors.New("name already taken")
)

type Repository interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByName(ctx context.Context, name string) (User, error)
	Create(ctx context.Context, u User) (User, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users []User
}

func NewInMemoryRepository(seed []User) *InMemoryRepository {
	r := &InMemoryRepository{users: make([]User, 0, len(seed))}
	r.users = append(r.users, seed...)
	return r
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) GetByName(_ context.Context, name string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Name == name {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) Create(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Name == u.Name {
			return User{}, ErrNameExists
		}
	}
	r.users = append(r.users, u)
	return u, nil
}
