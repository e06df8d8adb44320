package poll

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPollNotFound       = errors.New("poll not found")
	ErrNotCreator         = errors.New("only the creator may modify this poll")
	ErrTitleRequired      = errors.New("title required")
	ErrInvalidOptionCount = errors.New("poll must have between 2 and 10 options")
	ErrEmptyOptionText    = errors.New("option text must not be empty")
	ErrInvalidStatus      = errors.New("status must be active or expired")
)

const (
	minOptions = 2
	maxOptions = 10
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, p *Poll, optionTexts []string) (*Poll, []Option, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, nil, ErrTitleRequired
	}
	if err := validateOptions(optionTexts); err != nil {
		return nil, nil, err
	}

	opts := make([]Option, 0, len(optionTexts))
	for _, text := range optionTexts {
		opts = append(opts, Option{Text: text})
	}

	if _, err := s.repo.Create(ctx, p, opts); err != nil {
		return nil, nil, err
	}
	return p, opts, nil
}

// Get returns the poll only if the viewer may see it. Invisible polls are
// indistinguishable from absent ones.
func (s *Service) Get(ctx context.Context, id, viewerID int64) (*Poll, []Option, error) {
	p, opts, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !CanView(p, viewerID) {
		return nil, nil, ErrPollNotFound
	}
	return p, opts, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Poll, error) {
	if f.Status != "" && f.Status != "active" && f.Status != "expired" {
		return nil, ErrInvalidStatus
	}
	return s.repo.List(ctx, f)
}

func (s *Service) ListByCreator(ctx context.Context, creatorID int64) ([]Poll, error) {
	return s.repo.ListByCreator(ctx, creatorID)
}

func (s *Service) Update(ctx context.Context, id, viewerID int64, in UpdateInput) (*Poll, []Option, error) {
	p, _, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !CanView(p, viewerID) {
		return nil, nil, ErrPollNotFound
	}
	if !CanModify(p, viewerID) {
		return nil, nil, ErrNotCreator
	}

	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, nil, ErrTitleRequired
	}
	if in.Options != nil {
		if err := validateOptions(in.Options); err != nil {
			return nil, nil, err
		}
	}

	if err := s.repo.Update(ctx, id, in); err != nil {
		return nil, nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id, viewerID int64) error {
	p, _, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !CanView(p, viewerID) {
		return ErrPollNotFound
	}
	if !CanModify(p, viewerID) {
		return ErrNotCreator
	}
	return s.repo.Delete(ctx, id)
}

// ShareURL derives a stable link from the poll id. Non-creators get
// not-found, matching the detail endpoint's existence hiding.
func (s *Service) ShareURL(ctx context.Context, id, viewerID int64, baseURL string) (*Poll, string, error) {
	p, _, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !CanModify(p, viewerID) {
		return nil, "", ErrPollNotFound
	}
	return p, fmt.Sprintf("%s/poll/%d", strings.TrimRight(baseURL, "/"), p.ID), nil
}

func validateOptions(texts []string) error {
	if len(texts) < minOptions || len(texts) > maxOptions {
		return ErrInvalidOptionCount
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return ErrEmptyOptionText
		}
	}
	return nil
}
