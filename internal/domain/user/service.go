package user

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already taken")
	ErrPasswordMismatch   = errors.New("passwords don't match")
	ErrFieldsRequired     = errors.New("username, email and password required")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Register(ctx context.Context, username, email, password, passwordConfirm string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrFieldsRequired
	}
	if password != passwordConfirm {
		return nil, ErrPasswordMismatch
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// Login accepts either the username or the email in login.
func (s *Service) Login(ctx context.Context, login, password string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, login)
	if err != nil {
		u, err = s.repo.GetByEmail(ctx, login)
		if err != nil {
			return nil, ErrInvalidCredentials
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id int64, in ProfileUpdate) (*User, error) {
	if in.Username != nil {
		trimmed := strings.TrimSpace(*in.Username)
		if trimmed == "" {
			return nil, ErrFieldsRequired
		}
		if existing, err := s.repo.GetByUsername(ctx, trimmed); err == nil && existing.ID != id {
			return nil, ErrUsernameTaken
		}
		in.Username = &trimmed
	}
	if in.Email != nil {
		trimmed := strings.TrimSpace(*in.Email)
		if trimmed == "" {
			return nil, ErrFieldsRequired
		}
		if existing, err := s.repo.GetByEmail(ctx, trimmed); err == nil && existing.ID != id {
			return nil, ErrEmailTaken
		}
		in.Email = &trimmed
	}

	if err := s.repo.UpdateProfile(ctx, id, in); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}
