// Package gets implements the point-tally side game: /get claims a point,
// /gets_top shows the leaderboard. Tallies live in PostgreSQL.
package gets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrOnCooldown is returned when a user claims again too soon.
var ErrOnCooldown = errors.New("get is on cooldown")

// Entry is one leaderboard row.
type Entry struct {
	UserID   int64
	Username string
	Count    int64
	LastGet  time.Time
}

// Repository handles tally persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Migrate applies the gets schema. Called once at startup.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS gets (
			user_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			count BIGINT NOT NULL DEFAULT 0,
			last_get TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate gets schema: %w", err)
	}
	return nil
}

// Claim increments the user's tally and returns the new count. The claim
// is rejected with ErrOnCooldown while the previous one is newer than the
// cooldown; the check and the increment are a single statement, so two
// racing claims can never both pass.
func (r *Repository) Claim(ctx context.Context, userID int64, username string, cooldown time.Duration) (int64, error) {
	const query = `
		INSERT INTO gets (user_id, username, count, last_get)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET count = gets.count + 1, username = EXCLUDED.username, last_get = NOW()
		WHERE gets.last_get <= NOW() - $3::interval
		RETURNING count
	`

	var count int64
	interval := fmt.Sprintf("%d seconds", int(cooldown/time.Second))
	err := r.pool.QueryRow(ctx, query, userID, username, interval).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrOnCooldown
		}
		return 0, fmt.Errorf("failed to claim get: %w", err)
	}
	return count, nil
}

// CountFor returns the user's current tally, zero for unknown users.
func (r *Repository) CountFor(ctx context.Context, userID int64) (int64, error) {
	const query = `SELECT count FROM gets WHERE user_id = $1`

	var count int64
	err := r.pool.QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to count gets: %w", err)
	}
	return count, nil
}

// Top returns the highest tallies, largest first, ties by earliest last
// claim.
func (r *Repository) Top(ctx context.Context, limit int) ([]Entry, error) {
	const query = `
		SELECT user_id, username, count, last_get
		FROM gets
		ORDER BY count DESC, last_get ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Count, &e.LastGet); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	return entries, nil
}
