package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/loanops/commsync/internal/model"
)

type PostgresHistoryRepo struct {
	db *sqlx.DB
}

func NewPostgresHistoryRepo(db *sqlx.DB) *PostgresHistoryRepo {
	repo := &PostgresHistoryRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

func (r *PostgresHistoryRepo) Insert(ctx context.Context, rec *model.UpdateRecord) error {
	if rec == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO update_history (
			id, cycle_id, opportunity_id, pipeline_id, name,
			loan_amount, previous_value, new_value, rate, source, created_at
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,$9,$10,$11
		)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.CycleID, rec.OpportunityID, rec.PipelineID, rec.Name,
		rec.LoanAmount, rec.PreviousValue, rec.NewValue, rec.Rate, rec.Source, rec.CreatedAt)
	return err
}

func (r *PostgresHistoryRepo) List(ctx context.Context, limit int) ([]*model.UpdateRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	records := make([]*model.UpdateRecord, 0, limit)
	err := r.db.SelectContext(ctx, &records, `
		SELECT id, cycle_id, opportunity_id, pipeline_id, name,
		       loan_amount, previous_value, new_value, rate, source, created_at
		FROM update_history
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *PostgresHistoryRepo) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	_, err := r.db.ExecContext(ctx, `DELETE FROM update_history WHERE created_at < $1`, cutoff)
	return err
}

func (r *PostgresHistoryRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS update_history (
			id TEXT PRIMARY KEY,
			cycle_id TEXT,
			opportunity_id TEXT,
			pipeline_id TEXT,
			name TEXT,
			loan_amount DOUBLE PRECISION,
			previous_value DOUBLE PRECISION,
			new_value DOUBLE PRECISION,
			rate DOUBLE PRECISION,
			source TEXT,
			created_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return err
	}
	_, _ = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_update_history_created ON update_history(created_at DESC)`)
	return nil
}
