package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/repository"
)

type timerRepository struct {
	db *sql.DB
}

// NewTimerRepository creates a new TimerRepository implementation
func NewTimerRepository(db *sql.DB) repository.TimerRepository {
	return &timerRepository{db: db}
}

func (r *timerRepository) LoadActive(ctx context.Context) (map[string]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT problem_key, started_at FROM timers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	timers := make(map[string]time.Time)
	for rows.Next() {
		var (
			key     string
			started time.Time
		)
		if err := rows.Scan(&key, &started); err != nil {
			return nil, err
		}
		timers[key] = started
	}
	return timers, rows.Err()
}

// SaveActive replaces the persisted timer set wholesale. The coordinator is
// the single writer, so last-writer-wins is safe here.
func (r *timerRepository) SaveActive(ctx context.Context, timers map[string]time.Time) error {
	log := logger.FromContext(ctx).WithPrefix("timer_repo")
	log.Debug("persisting %d active timers", len(timers))

	return tx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM timers`); err != nil {
			return err
		}
		for key, started := range timers {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO timers (problem_key, started_at) VALUES (?, ?)`, key, started); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *timerRepository) LoadSolved(ctx context.Context) (map[string]models.SolvedRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT problem_key, solve_time_seconds, solved_at FROM solved_records`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make(map[string]models.SolvedRecord)
	for rows.Next() {
		var (
			key string
			rec models.SolvedRecord
		)
		if err := rows.Scan(&key, &rec.SolveTime, &rec.SolvedOn); err != nil {
			return nil, err
		}
		records[key] = rec
	}
	return records, rows.Err()
}

func (r *timerRepository) SaveSolved(ctx context.Context, records map[string]models.SolvedRecord) error {
	log := logger.FromContext(ctx).WithPrefix("timer_repo")
	log.Debug("persisting %d solved records", len(records))

	return tx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM solved_records`); err != nil {
			return err
		}
		for key, rec := range records {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO solved_records (problem_key, solve_time_seconds, solved_at) VALUES (?, ?, ?)`,
				key, rec.SolveTime, rec.SolvedOn); err != nil {
				return err
			}
		}
		return nil
	})
}
