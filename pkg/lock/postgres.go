package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time interface assertion.
var _ Locker = (*Postgres)(nil)

const lockSchema = `
CREATE TABLE IF NOT EXISTS generation_locks (
	key        text PRIMARY KEY,
	holder     text NOT NULL,
	expires_at timestamptz NOT NULL
)`

// acquireSQL takes the row when it is absent or its lease has expired.
const acquireSQL = `
INSERT INTO generation_locks (key, holder, expires_at)
VALUES ($1, $2, now() + $3)
ON CONFLICT (key) DO UPDATE
SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
WHERE generation_locks.expires_at < now()`

const releaseSQL = `DELETE FROM generation_locks WHERE key = $1 AND holder = $2`

const heldSQL = `SELECT EXISTS (
	SELECT 1 FROM generation_locks WHERE key = $1 AND expires_at > now()
)`

// Postgres is a Locker backed by an upsert-if-expired row lease. Useful
// when workers already share a database and no Redis is deployed.
type Postgres struct {
	pool *pgxpool.Pool

	mu      sync.Mutex
	holders map[string]string
}

// NewPostgres creates a Postgres-backed Locker.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, holders: make(map[string]string)}
}

// CreateSchema creates the lease table if needed.
func (p *Postgres) CreateSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, lockSchema); err != nil {
		return fmt.Errorf("lock: create schema: %w", err)
	}
	return nil
}

func (p *Postgres) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	holder := uuid.NewString()
	tag, err := p.pool.Exec(ctx, acquireSQL, key, holder, ttl)
	if err != nil {
		return false, fmt.Errorf("lock: pg acquire %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	p.mu.Lock()
	p.holders[key] = holder
	p.mu.Unlock()
	return true, nil
}

func (p *Postgres) Held(ctx context.Context, key string) (bool, error) {
	var held bool
	if err := p.pool.QueryRow(ctx, heldSQL, key).Scan(&held); err != nil {
		return false, fmt.Errorf("lock: pg held %s: %w", key, err)
	}
	return held, nil
}

func (p *Postgres) Release(ctx context.Context, key string) error {
	p.mu.Lock()
	holder, ok := p.holders[key]
	delete(p.holders, key)
	p.mu.Unlock()
	if !ok {
		return nil
	}
	if _, err := p.pool.Exec(ctx, releaseSQL, key, holder); err != nil {
		return fmt.Errorf("lock: pg release %s: %w", key, err)
	}
	return nil
}
