package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pollbox/internal/domain/poll"
)

type PollRepo struct {
	db *sql.DB
}

func NewPollRepo(db *sql.DB) *PollRepo {
	return &PollRepo{db: db}
}

const pollColumns = `
        p.id, p.title, p.description, p.creator_id, p.is_public,
        p.expires_at, p.created_at, p.updated_at,
        (SELECT COUNT(*) FROM votes v WHERE v.poll_id = p.id) AS total_votes
`

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll, options []poll.Option) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	queryPoll := `
        INSERT INTO polls (title, description, creator_id, is_public, expires_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at
    `

	err = tx.QueryRowContext(ctx, queryPoll,
		p.Title,
		p.Description,
		p.CreatorID,
		p.IsPublic,
		p.ExpiresAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return 0, err
	}

	if err := insertOptions(ctx, tx, p.ID, options); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return p.ID, nil
}

func (r *PollRepo) GetByID(ctx context.Context, id int64) (*poll.Poll, []poll.Option, error) {
	p := &poll.Poll{}
	err := r.db.QueryRowContext(ctx, `
        SELECT `+pollColumns+`
        FROM polls p WHERE p.id = $1
    `, id).Scan(
		&p.ID, &p.Title, &p.Description, &p.CreatorID, &p.IsPublic,
		&p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt, &p.TotalVotes,
	)
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, poll_id, text, created_at
        FROM options WHERE poll_id = $1 ORDER BY id
    `, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var opts []poll.Option
	for rows.Next() {
		var o poll.Option
		if err := rows.Scan(&o.ID, &o.PollID, &o.Text, &o.CreatedAt); err != nil {
			return nil, nil, err
		}
		opts = append(opts, o)
	}

	return p, opts, rows.Err()
}

// List returns public polls only; visibility filtering for listings happens
// here as a row filter.
func (r *PollRepo) List(ctx context.Context, f poll.ListFilter) ([]poll.Poll, error) {
	where := []string{"p.is_public = TRUE"}
	var args []any

	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(p.title ILIKE $%d OR COALESCE(p.description, '') ILIKE $%d)", n, n))
	}

	switch f.Status {
	case "active":
		where = append(where, "(p.expires_at IS NULL OR p.expires_at > now())")
	case "expired":
		where = append(where, "(p.expires_at IS NOT NULL AND p.expires_at <= now())")
	}

	query := `SELECT ` + pollColumns + ` FROM polls p WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY p.created_at DESC`

	return r.queryPolls(ctx, query, args...)
}

func (r *PollRepo) ListByCreator(ctx context.Context, creatorID int64) ([]poll.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls p WHERE p.creator_id = $1 ORDER BY p.created_at DESC`
	return r.queryPolls(ctx, query, creatorID)
}

func (r *PollRepo) Update(ctx context.Context, id int64, in poll.UpdateInput) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        UPDATE polls
        SET title       = COALESCE($1, title),
            description = COALESCE($2, description),
            is_public   = COALESCE($3, is_public),
            expires_at  = CASE WHEN $4 THEN NULL ELSE COALESCE($5, expires_at) END,
            updated_at  = now()
        WHERE id = $6
    `, in.Title, in.Description, in.IsPublic, in.ClearExpiresAt, in.ExpiresAt, id)
	if err != nil {
		return err
	}

	if in.Options != nil {
		// Wholesale replacement: prior options go away and their votes
		// cascade with them.
		if _, err := tx.ExecContext(ctx, `DELETE FROM options WHERE poll_id = $1`, id); err != nil {
			return err
		}
		opts := make([]poll.Option, 0, len(in.Options))
		for _, text := range in.Options {
			opts = append(opts, poll.Option{Text: text})
		}
		if err := insertOptions(ctx, tx, id, opts); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PollRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, id)
	return err
}

func (r *PollRepo) queryPolls(ctx context.Context, query string, args ...any) ([]poll.Poll, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []poll.Poll
	for rows.Next() {
		var p poll.Poll
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.CreatorID, &p.IsPublic,
			&p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt, &p.TotalVotes); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// escapeLike neutralizes LIKE/ILIKE metacharacters in user input so a
// search for "100%" matches that literal text instead of acting as a
// wildcard.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func insertOptions(ctx context.Context, tx *sql.Tx, pollID int64, options []poll.Option) error {
	query := `
        INSERT INTO options (poll_id, text)
        VALUES ($1, $2)
        RETURNING id, created_at
    `
	for i := range options {
		options[i].PollID = pollID
		if err := tx.QueryRowContext(ctx, query, pollID, options[i].Text).
			Scan(&options[i].ID, &options[i].CreatedAt); err != nil {
			return err
		}
	}
	return nil
}
