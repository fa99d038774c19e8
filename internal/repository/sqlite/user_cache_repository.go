package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/repository"
)

type userCacheRepository struct {
	db *sql.DB
}

// NewUserCacheRepository creates a new UserCacheRepository implementation
func NewUserCacheRepository(db *sql.DB) repository.UserCacheRepository {
	return &userCacheRepository{db: db}
}

func (r *userCacheRepository) Get(ctx context.Context, handle string) (*models.UserData, error) {
	log := logger.FromContext(ctx).WithPrefix("user_cache_repo")
	log.Debug("getting user cache: handle=%s", handle)

	var (
		u          models.UserData
		solvedJSON string
	)
	err := r.db.QueryRowContext(ctx, `
SELECT handle, rating, rating_checked_at, full_checked_at, quick_checked_at, solved_json
FROM user_cache
WHERE handle = ?
`, handle).Scan(&u.Handle, &u.Rating, &u.RatingCheckedAt, &u.FullCheckedAt, &u.QuickCheckedAt, &solvedJSON)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("no cache entry for handle=%s", handle)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get user cache: %v", err)
		return nil, err
	}

	var solved []string
	if err := json.Unmarshal([]byte(solvedJSON), &solved); err != nil {
		log.Error("corrupt solved set for handle=%s: %v", handle, err)
		return nil, err
	}
	u.Solved = make(map[string]bool, len(solved))
	for _, k := range solved {
		u.Solved[k] = true
	}

	log.Debug("cache entry found: handle=%s solved=%d", handle, len(u.Solved))
	return &u, nil
}

func (r *userCacheRepository) Save(ctx context.Context, data *models.UserData) error {
	log := logger.FromContext(ctx).WithPrefix("user_cache_repo")
	log.Debug("saving user cache: handle=%s solved=%d", data.Handle, len(data.Solved))

	solvedJSON, err := json.Marshal(data.SolvedList())
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO user_cache (handle, rating, rating_checked_at, full_checked_at, quick_checked_at, solved_json, updated_at)
VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(handle) DO UPDATE SET
    rating = excluded.rating,
    rating_checked_at = excluded.rating_checked_at,
    full_checked_at = excluded.full_checked_at,
    quick_checked_at = excluded.quick_checked_at,
    solved_json = excluded.solved_json,
    updated_at = CURRENT_TIMESTAMP
`, data.Handle, data.Rating, data.RatingCheckedAt, data.FullCheckedAt, data.QuickCheckedAt, string(solvedJSON))
	if err != nil {
		log.Error("failed to save user cache: %v", err)
	}
	return err
}

func (r *userCacheRepository) Delete(ctx context.Context, handle string) error {
	log := logger.FromContext(ctx).WithPrefix("user_cache_repo")
	log.Debug("deleting user cache: handle=%s", handle)

	_, err := r.db.ExecContext(ctx, `DELETE FROM user_cache WHERE handle = ?`, handle)
	if err != nil {
		log.Error("failed to delete user cache: %v", err)
	}
	return err
}

func (r *userCacheRepository) Handles(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT handle FROM user_cache ORDER BY handle`)
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
