package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/repository"
)

type historyRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new HistoryRepository implementation
func NewHistoryRepository(db *sql.DB) repository.HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, error) {
	log := logger.FromContext(ctx).WithPrefix("history_repo")
	log.Debug("listing history: handle=%s status=%s day=%s", filter.Handle, filter.Status, filter.Day)

	query := sqlBuilder.Select(
		"contest_id", "problem_index", "name", "rating", "status",
		"recommended_on", "recommendation_order", "solve_time_seconds", "solved_at",
	).From("history")

	// Dynamic WHERE clauses
	if filter.Handle != "" {
		query = query.Where(squirrel.Eq{"handle": filter.Handle})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.Day != "" {
		query = query.Where(squirrel.Eq{"recommended_on": filter.Day})
	}
	query = query.OrderBy("recommended_on DESC", "recommendation_order DESC", "problem_key ASC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build history query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to list history: %v", err)
		return nil, err
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ContestID, &e.Index, &e.Name, &e.Rating, &e.Status,
			&e.Day, &e.Order, &e.SolveTime, &e.SolvedAt); err != nil {
			log.Error("failed to scan history row: %v", err)
			return nil, err
		}
		entries = append(entries, e)
	}

	log.Debug("found %d history entries", len(entries))
	return entries, rows.Err()
}

func (r *historyRepository) UpsertBatch(ctx context.Context, handle string, entries []models.HistoryEntry) error {
	log := logger.FromContext(ctx).WithPrefix("history_repo")
	log.Debug("upserting %d history entries for handle=%s", len(entries), handle)

	return tx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO history (handle, problem_key, contest_id, problem_index, name, rating, status, recommended_on, recommendation_order, solve_time_seconds, solved_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(handle, problem_key) DO UPDATE SET
    name = excluded.name,
    rating = excluded.rating,
    status = excluded.status,
    recommended_on = excluded.recommended_on,
    recommendation_order = excluded.recommendation_order,
    solve_time_seconds = excluded.solve_time_seconds,
    solved_at = excluded.solved_at
`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, handle, e.Key(), e.ContestID, e.Index, e.Name,
				e.Rating, e.Status, e.Day, e.Order, e.SolveTime, e.SolvedAt); err != nil {
				log.Error("failed to upsert history entry %s: %v", e.Key(), err)
				return err
			}
		}
		return nil
	})
}

// MarkSolved flips an entry to solved and optionally attaches the tracked
// solve duration. A nil solveTime keeps whatever duration is already there,
// so reconciliation never erases a timer-recorded value.
func (r *historyRepository) MarkSolved(ctx context.Context, handle, problemKey string, solveTime *int64, solvedAt time.Time) error {
	log := logger.FromContext(ctx).WithPrefix("history_repo")
	log.Debug("marking solved: handle=%s key=%s", handle, problemKey)

	var err error
	if solveTime != nil {
		_, err = r.db.ExecContext(ctx, `
UPDATE history SET status = ?, solve_time_seconds = ?, solved_at = ?
WHERE handle = ? AND problem_key = ?
`, models.StatusSolved, *solveTime, solvedAt, handle, problemKey)
	} else {
		_, err = r.db.ExecContext(ctx, `
UPDATE history SET status = ?, solved_at = ?
WHERE handle = ? AND problem_key = ?
`, models.StatusSolved, solvedAt, handle, problemKey)
	}
	if err != nil {
		log.Error("failed to mark solved: %v", err)
	}
	return err
}

func (r *historyRepository) Clear(ctx context.Context, handle string) error {
	log := logger.FromContext(ctx).WithPrefix("history_repo")
	log.Debug("clearing history: handle=%s", handle)

	_, err := r.db.ExecContext(ctx, `DELETE FROM history WHERE handle = ?`, handle)
	if err != nil {
		log.Error("failed to clear history: %v", err)
	}
	return err
}

func (r *historyRepository) Handles(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT handle FROM history ORDER BY handle`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var handles []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, rows.Err()
}
