package agent

import "context"

type RunRepository interface {
	CreateRun(ctx context.Context, run *Run) error
	RunsByUser(ctx context.Context, userID, limit, offset int) ([]Run, error)
}
