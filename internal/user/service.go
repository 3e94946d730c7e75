package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Register(ctx context.Context, name, password string) (User, error) {
	if _, err := s.repo.GetByName(ctx, name); err == nil {
		return User{}, ErrNameExists
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	return s.repo.Create(ctx, User{
		ID:        uuid.NewString(),
		Name:      name,
		Password:  string(hashed),
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Service) Authenticate(ctx context.Context, name, password string) (User, error) {
	u, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}

	return u, nil
}
