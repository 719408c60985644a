package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/dataservice-read/internal/domain"
)

const defaultOpTimeout = 3 * time.Second

// PostgresCache persists cache entries so they survive restarts.
type PostgresCache struct {
	Pool      *pgxpool.Pool
	OpTimeout time.Duration
	now       func() time.Time
}

func NewPostgresCache(pool *pgxpool.Pool) *PostgresCache {
	return &PostgresCache{Pool: pool, OpTimeout: defaultOpTimeout, now: time.Now}
}

var (
	_ domain.Cache         = (*PostgresCache)(nil)
	_ domain.CacheSnapshot = (*PostgresCache)(nil)
)

func (r *PostgresCache) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.OpTimeout)
}

func (r *PostgresCache) Get(key string) ([]byte, bool, error) {
	ctx, cancel := r.opContext()
	defer cancel()
	var value []byte
	err := r.Pool.QueryRow(ctx, `SELECT value FROM cache_entries
        WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)`, key, r.now()).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// GetWithTTL is Get plus the remaining lifetime of the entry, zero when it
// never expires.
func (r *PostgresCache) GetWithTTL(key string) ([]byte, time.Duration, bool, error) {
	ctx, cancel := r.opContext()
	defer cancel()
	now := r.now()
	var (
		value     []byte
		expiresAt *time.Time
	)
	err := r.Pool.QueryRow(ctx, `SELECT value, expires_at FROM cache_entries
        WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)`, key, now).Scan(&value, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	var ttl time.Duration
	if expiresAt != nil {
		ttl = expiresAt.Sub(now)
	}
	return value, ttl, true, nil
}

func (r *PostgresCache) Put(key string, value []byte, expiry time.Duration) error {
	ctx, cancel := r.opContext()
	defer cancel()
	var expiresAt *time.Time
	if expiry > 0 {
		t := r.now().Add(expiry)
		expiresAt = &t
	}
	_, err := r.Pool.Exec(ctx, `INSERT INTO cache_entries(key, value, expires_at) VALUES($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`, key, value, expiresAt)
	return err
}

func (r *PostgresCache) Remove(key string) error {
	ctx, cancel := r.opContext()
	defer cancel()
	_, err := r.Pool.Exec(ctx, `DELETE FROM cache_entries WHERE key = $1`, key)
	return err
}

func (r *PostgresCache) LoadAll(ctx context.Context, fn func(key string, value []byte, ttl time.Duration) error) error {
	now := r.now()
	rows, err := r.Pool.Query(ctx, `SELECT key, value, expires_at FROM cache_entries
        WHERE expires_at IS NULL OR expires_at > $1`, now)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key       string
			value     []byte
			expiresAt *time.Time
		)
		if err := rows.Scan(&key, &value, &expiresAt); err != nil {
			return err
		}
		var ttl time.Duration
		if expiresAt != nil {
			ttl = expiresAt.Sub(now)
		}
		if err := fn(key, value, ttl); err != nil {
			return err
		}
	}
	return rows.Err()
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (r *PostgresCache) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM cache_entries WHERE expires_at IS NOT NULL AND expires_at <= $1`, r.now())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// EnsureSchema creates the cache table if it does not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cache_entries (
  key text PRIMARY KEY,
  value bytea NOT NULL,
  expires_at timestamptz
);`)
	return err
}
