package vote

import (
	"context"
	"errors"
	"math"
	"time"

	"pollbox/internal/domain/poll"
	"pollbox/internal/retry"
)

var (
	ErrIdentityRequired = errors.New("no identity or ip address available")
	ErrOptionNotInPoll  = errors.New("option does not belong to poll")
	ErrPollExpired      = errors.New("this poll has expired")
)

const (
	upsertAttempts = 3
	upsertBackoff  = 50 * time.Millisecond
)

type Service struct {
	repo  Repository
	polls PollDirectory
}

func NewService(repo Repository, polls PollDirectory) *Service {
	return &Service{repo: repo, polls: polls}
}

// Cast records a vote for callerID (0 when anonymous) or ip. A repeat cast
// within the same poll repoints the existing vote row, last vote wins; the
// prior choice is not retained. An identity-scoped and an ip-scoped row for
// the same physical person are treated as independent votes.
func (s *Service) Cast(ctx context.Context, pollID, optionID, callerID int64, ip string) error {
	if callerID == 0 && ip == "" {
		return ErrIdentityRequired
	}

	p, opts, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return err
	}
	if !poll.CanVote(p, callerID) {
		return poll.ErrPollNotFound
	}
	if p.IsExpired() {
		return ErrPollExpired
	}

	found := false
	for _, o := range opts {
		if o.ID == optionID {
			found = true
			break
		}
	}
	if !found {
		return ErrOptionNotInPoll
	}

	v := &Vote{PollID: pollID, OptionID: optionID}
	if callerID != 0 {
		v.UserID = &callerID
	}
	if ip != "" {
		v.IPAddress = &ip
	}

	// The conditional upsert can still lose a race under concurrent casts
	// on the same scope; retry the write instead of surfacing the conflict.
	return retry.DoWithRetry(ctx, upsertAttempts, upsertBackoff, func() error {
		return s.repo.Upsert(ctx, v)
	})
}

// Results recomputes counts and percentages from current vote rows on every
// call. Nothing is cached, so results always reflect the latest cast.
func (s *Service) Results(ctx context.Context, pollID, callerID int64) (*poll.Poll, []Result, int64, error) {
	p, opts, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, nil, 0, err
	}
	if !poll.CanView(p, callerID) {
		return nil, nil, 0, poll.ErrPollNotFound
	}

	counts, total, err := s.repo.CountByPoll(ctx, pollID)
	if err != nil {
		return nil, nil, 0, err
	}

	results := make([]Result, 0, len(opts))
	for _, o := range opts {
		c := counts[o.ID]
		var pct float64
		if total > 0 {
			pct = round2(float64(c) * 100.0 / float64(total))
		}
		results = append(results, Result{
			OptionID:   o.ID,
			Text:       o.Text,
			Votes:      c,
			Percentage: pct,
		})
	}

	return p, results, total, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
