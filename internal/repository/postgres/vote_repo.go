package postgres

import (
	"context"
	"database/sql"

	"pollbox/internal/domain/vote"
)

type VoteRepo struct {
	db *sql.DB
}

func NewVoteRepo(db *sql.DB) *VoteRepo {
	return &VoteRepo{db: db}
}

// Upsert is keyed on the vote's uniqueness scope. The partial unique indexes
// on votes make the whole lookup-then-write a single atomic statement, so
// two racing casts from the same user or ip collapse into one row with the
// last committed option winning.
func (r *VoteRepo) Upsert(ctx context.Context, v *vote.Vote) error {
	if v.UserID != nil {
		query := `
            INSERT INTO votes (poll_id, option_id, user_id, ip_address)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (poll_id, user_id) WHERE user_id IS NOT NULL
            DO UPDATE SET option_id  = EXCLUDED.option_id,
                          ip_address = EXCLUDED.ip_address,
                          updated_at = now()
            RETURNING id, created_at, updated_at
        `
		return r.db.QueryRowContext(ctx, query, v.PollID, v.OptionID, v.UserID, v.IPAddress).
			Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	}

	query := `
        INSERT INTO votes (poll_id, option_id, ip_address)
        VALUES ($1, $2, $3)
        ON CONFLICT (poll_id, ip_address) WHERE user_id IS NULL
        DO UPDATE SET option_id  = EXCLUDED.option_id,
                      updated_at = now()
        RETURNING id, created_at, updated_at
    `
	return r.db.QueryRowContext(ctx, query, v.PollID, v.OptionID, v.IPAddress).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

func (r *VoteRepo) CountByPoll(ctx context.Context, pollID int64) (map[int64]int64, int64, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT option_id, COUNT(*)
        FROM votes
        WHERE poll_id = $1
        GROUP BY option_id
    `, pollID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	res := make(map[int64]int64)
	var total int64
	for rows.Next() {
		var optID int64
		var c int64
		if err := rows.Scan(&optID, &c); err != nil {
			return nil, 0, err
		}
		res[optID] = c
		total += c
	}

	return res, total, rows.Err()
}
