package agent

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type runRepository struct {
	db *sqlx.DB
}

func NewRunRepository(db *sqlx.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) CreateRun(ctx context.Context, run *Run) error {
	return r.db.QueryRowxContext(ctx,
		`INSERT INTO agent_runs (id, user_id, agent_slug, status, price)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		run.ID, run.UserID, run.AgentSlug, run.Status, run.Price,
	).Scan(&run.CreatedAt)
}

func (r *runRepository) RunsByUser(ctx context.Context, userID, limit, offset int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	var runs []Run
	err := r.db.SelectContext(ctx, &runs, `
		SELECT id, user_id, agent_slug, status, price, created_at
		FROM agent_runs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return runs, nil
}
