package vote

import (
	"context"
	"time"

	"pollbox/internal/domain/poll"
)

type Vote struct {
	ID        int64     `json:"id"`
	PollID    int64     `json:"poll_id"`
	OptionID  int64     `json:"option_id"`
	UserID    *int64    `json:"user_id,omitempty"`
	IPAddress *string   `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Result struct {
	OptionID   int64   `json:"id"`
	Text       string  `json:"text"`
	Votes      int64   `json:"vote_count"`
	Percentage float64 `json:"vote_percentage"`
}

type Repository interface {
	// Upsert inserts the vote, or repoints the existing row for the same
	// (poll, user) or (poll, ip) scope. Atomic with respect to concurrent
	// casts on the same scope.
	Upsert(ctx context.Context, v *Vote) error
	CountByPoll(ctx context.Context, pollID int64) (map[int64]int64, int64, error)
}

// PollDirectory is the slice of the poll store the voting engine needs.
type PollDirectory interface {
	GetByID(ctx context.Context, id int64) (*poll.Poll, []poll.Option, error)
}
