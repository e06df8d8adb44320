package vote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"pollbox/internal/domain/poll"
)

type memoryVoteRepo struct {
	mu     sync.Mutex
	votes  map[string]*Vote // scope key -> row
	nextID int64
}

func newMemoryVoteRepo() *memoryVoteRepo {
	return &memoryVoteRepo{votes: make(map[string]*Vote), nextID: 1}
}

func scopeKey(v *Vote) string {
	if v.UserID != nil {
		return fmt.Sprintf("user:%d:%d", v.PollID, *v.UserID)
	}
	return fmt.Sprintf("ip:%d:%s", v.PollID, *v.IPAddress)
}

func (r *memoryVoteRepo) Upsert(ctx context.Context, v *Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := scopeKey(v)
	if existing, ok := r.votes[key]; ok {
		existing.OptionID = v.OptionID
		existing.UpdatedAt = time.Now()
		*v = *existing
		return nil
	}
	v.ID = r.nextID
	r.nextID++
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	copyVote := *v
	r.votes[key] = &copyVote
	return nil
}

func (r *memoryVoteRepo) CountByPoll(ctx context.Context, pollID int64) (map[int64]int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make(map[int64]int64)
	var total int64
	for _, v := range r.votes {
		if v.PollID != pollID {
			continue
		}
		res[v.OptionID]++
		total++
	}
	return res, total, nil
}

func (r *memoryVoteRepo) rowCount(pollID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, v := range r.votes {
		if v.PollID == pollID {
			n++
		}
	}
	return n
}

type stubPollDirectory struct {
	polls map[int64]*poll.Poll
	opts  map[int64][]poll.Option
}

func newStubDirectory() *stubPollDirectory {
	return &stubPollDirectory{
		polls: make(map[int64]*poll.Poll),
		opts:  make(map[int64][]poll.Option),
	}
}

func (d *stubPollDirectory) add(p *poll.Poll, optionIDs ...int64) {
	d.polls[p.ID] = p
	for _, id := range optionIDs {
		d.opts[p.ID] = append(d.opts[p.ID], poll.Option{ID: id, PollID: p.ID})
	}
}

func (d *stubPollDirectory) GetByID(ctx context.Context, id int64) (*poll.Poll, []poll.Option, error) {
	p, ok := d.polls[id]
	if !ok {
		return nil, nil, sql.ErrNoRows
	}
	return p, d.opts[id], nil
}

func setup() (*Service, *memoryVoteRepo, *stubPollDirectory) {
	repo := newMemoryVoteRepo()
	dir := newStubDirectory()
	return NewService(repo, dir), repo, dir
}

func TestCastRequiresIdentity(t *testing.T) {
	svc, _, dir := setup()
	dir.add(&poll.Poll{ID: 1, CreatorID: 7, IsPublic: true}, 10, 11)

	if err := svc.Cast(context.Background(), 1, 10, 0, ""); !errors.Is(err, ErrIdentityRequired) {
		t.Fatalf("expected ErrIdentityRequired, got %v", err)
	}
}

func TestCastRevoteKeepsSingleRow(t *testing.T) {
	svc, repo, dir := setup()
	dir.add(&poll.Poll{ID: 1, CreatorID: 7, IsPublic: true}, 10, 11)
	ctx := context.Background()

	if err := svc.Cast(ctx, 1, 10, 42, "9.9.9.9"); err != nil {
		t.Fatalf("first cast: %v", err)
	}
	if err := svc.Cast(ctx, 1, 11, 42, "9.9.9.9"); err != nil {
		t.Fatalf("second cast: %v", err)
	}

	if n := repo.rowCount(1); n != 1 {
		t.Fatalf("expected 1 vote row, got %d", n)
	}
	counts, total, _ := repo.CountByPoll(ctx, 1)
	if total != 1 || counts[11] != 1 || counts[10] != 0 {
		t.Fatalf("vote did not move: counts=%v total=%d", counts, total)
	}
}

func TestCastAnonymousIPScope(t *testing.T) {
	svc, repo, dir := setup()
	dir.add(&poll.Poll{ID: 1, CreatorID: 7, IsPublic: true}, 10, 11)
	ctx := context.Background()

	if err := svc.Cast(ctx, 1, 10, 0, "1.2.3.4"); err != nil {
		t.Fatalf("anonymous cast: %v", err)
	}
	if err := svc.Cast(ctx, 1, 11, 0, "1.2.3.4"); err != nil {
		t.Fatalf("anonymous re-cast: %v", err)
	}
	if n := repo.rowCount(1); n != 1 {
		t.Fatalf("expected 1 vote row for repeated ip, got %d", n)
	}

	// A different IP is a different identity.
	if err := svc.Cast(ctx, 1, 10, 0, "5.6.7.8"); err != nil {
		t.Fatalf("second ip cast: %v", err)
	}
	if n := repo.rowCount(1); n != 2 {
		t.Fatalf("expected 2 vote rows, got %d", n)
	}
}

func TestCastIdentityAndIPScopesAreIndependent(t *testing.T) {
	// A user who voted anonymously and then votes logged-in from the same
	// address ends up with two rows; the scopes are never merged.
	svc, repo, dir := setup()
	dir.add(&poll.Poll{ID: 1, CreatorID: 7, IsPublic: true}, 10, 11)
	ctx := context.Background()

	if err := svc.Cast(ctx, 1, 10, 0, "1.2.3.4"); err != nil {
		t.Fatalf("anonymous cast: %v", err)
	}
	if err := svc.Cast(ctx, 1, 11, 42, "1.2.3.4"); err != nil {
		t.Fatalf("authenticated cast: %v", err)
	}
	if n := repo.rowCount(1); n != 2 {
		t.Fatalf("expected independent scopes to keep 2 rows, got %d", n)
	}
}

func TestCastExpiredPoll(t *testing.T) {
	svc, _, dir := setup()
	past := time.Now().Add(-time.Minute)
	dir.add(&poll.Poll{ID: 1, CreatorID: 7, IsPublic: true, ExpiresAt: &past}, 10, 11)

	if err := svc.Cast(context.Background(), 1, 10, 42, ""); !errors.Is(err, ErrPollExpired) {
		t.Fatalf("expected ErrPollExpired, got %v", err)
	}
}

func TestCastOptionMustBelongToPoll(t *testing.T) {
	svc, _, dir := setup()
	dir.add(&poll.Poll{ID: 1, CreatorID: 7, IsPublic: true}, 10, 11)
	dir.add(&poll.Poll{ID: 2, CreatorID: 7, IsPublic: true}, 20, 21)

	if err := svc.Cast(context.Background(), 1, 20, 42, ""); !errors.Is(err, ErrOptionNotInPoll) {
		t.Fatalf("expected ErrOptionNotInPoll, got %v", err)
	}
}

func TestCastPrivatePollHidden(t *testing.T) {
	svc, _, dir := setup()
	dir.add(&poll.Poll{ID: 1, CreatorID: 7, IsPublic: false}, 10, 11)
	ctx := context.Background()

	if err := svc.Cast(ctx, 1, 10, 99, ""); !errors.Is(err, poll.ErrPollNotFound) {
		t.Fatalf("expected not-found for stranger, got %v", err)
	}
	if err := svc.Cast(ctx, 1, 10, 0, "1.2.3.4"); !errors.Is(err, poll.ErrPollNotFound) {
		t.Fatalf("expected not-found for anonymous, got %v", err)
	}
	if err := svc.Cast(ctx, 1, 10, 7, ""); err != nil {
		t.Fatalf("creator should vote their private poll, got %v", err)
	}
}

func TestConcurrentCastsSameIdentity(t *testing.T) {
	svc, repo, dir := setup()
	dir.add(&poll.Poll{ID: 1, CreatorID: 7, IsPublic: true}, 10, 11)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		optionID := int64(10)
		if i%2 == 0 {
			optionID = 11
		}
		go func() {
			defer wg.Done()
			if err := svc.Cast(ctx, 1, optionID, 42, ""); err != nil {
				t.Errorf("concurrent cast: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := repo.rowCount(1); n != 1 {
		t.Fatalf("expected exactly one row after racing casts, got %d", n)
	}
	_, total, _ := repo.CountByPoll(ctx, 1)
	if total != 1 {
		t.Fatalf("expected total 1, got %d", total)
	}
}

func TestResultsPercentages(t *testing.T) {
	svc, _, dir := setup()
	dir.add(&poll.Poll{ID: 1, CreatorID: 7, IsPublic: true}, 10, 11, 12)
	ctx := context.Background()

	// Three voters split 2/1/0.
	if err := svc.Cast(ctx, 1, 10, 1, ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.Cast(ctx, 1, 10, 2, ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.Cast(ctx, 1, 11, 3, ""); err != nil {
		t.Fatal(err)
	}

	_, results, total, err := svc.Results(ctx, 1, 0)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if total != 3 {
		t.Fatalf("total %d, want 3", total)
	}
	byOption := make(map[int64]Result)
	var sum float64
	var counted int64
	for _, res := range results {
		byOption[res.OptionID] = res
		sum += res.Percentage
		counted += res.Votes
	}
	if counted != total {
		t.Fatalf("total_votes %d != sum of option counts %d", total, counted)
	}
	if byOption[10].Percentage != 66.67 || byOption[11].Percentage != 33.33 || byOption[12].Percentage != 0 {
		t.Fatalf("unexpected percentages: %+v", results)
	}
	// Within rounding tolerance of 2 decimals per option.
	if sum < 99.9 || sum > 100.1 {
		t.Fatalf("percentages sum to %v", sum)
	}
}

func TestResultsEmptyPoll(t *testing.T) {
	svc, _, dir := setup()
	dir.add(&poll.Poll{ID: 1, CreatorID: 7, IsPublic: true}, 10, 11)

	_, results, total, err := svc.Results(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if total != 0 {
		t.Fatalf("total %d, want 0", total)
	}
	if len(results) != 2 {
		t.Fatalf("expected an entry per option, got %d", len(results))
	}
	for _, res := range results {
		if res.Votes != 0 || res.Percentage != 0 {
			t.Fatalf("expected zeros, got %+v", res)
		}
	}
}

func TestResultsVisibility(t *testing.T) {
	svc, _, dir := setup()
	dir.add(&poll.Poll{ID: 1, CreatorID: 7, IsPublic: false}, 10, 11)

	if _, _, _, err := svc.Results(context.Background(), 1, 99); !errors.Is(err, poll.ErrPollNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if _, _, _, err := svc.Results(context.Background(), 1, 7); err != nil {
		t.Fatalf("creator results: %v", err)
	}
}
