package poll

import (
	"context"
	"time"
)

type Poll struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	CreatorID   int64      `json:"creator_id"`
	IsPublic    bool       `json:"is_public"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	TotalVotes  int64      `json:"total_votes"`
}

// IsExpired is computed from the wall clock on every read; expiry is
// never stored as a status.
func (p *Poll) IsExpired() bool {
	return p.ExpiresAt != nil && time.Now().After(*p.ExpiresAt)
}

func (p *Poll) IsActive() bool {
	return !p.IsExpired()
}

type Option struct {
	ID        int64     `json:"id"`
	PollID    int64     `json:"poll_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type ListFilter struct {
	Search string
	Status string // "", "active" or "expired"
}

type UpdateInput struct {
	Title       *string
	Description *string
	IsPublic    *bool
	ExpiresAt   *time.Time
	// ClearExpiresAt sets expires_at back to NULL; a nil ExpiresAt alone
	// means "leave unchanged".
	ClearExpiresAt bool
	Options        []string // non-nil replaces the option set wholesale
}

type Repository interface {
	Create(ctx context.Context, p *Poll, options []Option) (int64, error)
	GetByID(ctx context.Context, id int64) (*Poll, []Option, error)
	List(ctx context.Context, f ListFilter) ([]Poll, error)
	ListByCreator(ctx context.Context, creatorID int64) ([]Poll, error)
	Update(ctx context.Context, id int64, in UpdateInput) error
	Delete(ctx context.Context, id int64) error
}
