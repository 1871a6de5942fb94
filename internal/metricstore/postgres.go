package metricstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bekzodm/dubpipe/pkg/types"
)

// Compile-time interface assertion.
var _ Store = (*Postgres)(nil)

const metricSchema = `
CREATE TABLE IF NOT EXISTS tts_quality_metrics (
	id             bigserial PRIMARY KEY,
	segment_id     bigint NOT NULL,
	video_id       bigint NOT NULL,
	provider       text NOT NULL,
	duration_ratio double precision NOT NULL,
	rms_level      double precision NOT NULL,
	pitch_hz       double precision NOT NULL,
	stretch_factor double precision NOT NULL,
	trimmed        boolean NOT NULL,
	created_at     timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS tts_quality_metrics_segment_idx
	ON tts_quality_metrics (segment_id, created_at)`

const appendSQL = `
INSERT INTO tts_quality_metrics
	(segment_id, video_id, provider, duration_ratio, rms_level, pitch_hz,
	 stretch_factor, trimmed, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const listSQL = `
SELECT segment_id, video_id, provider, duration_ratio, rms_level, pitch_hz,
       stretch_factor, trimmed, created_at
FROM tts_quality_metrics
WHERE segment_id = $1
ORDER BY created_at`

// Postgres is the durable Store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed Store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// CreateSchema creates the metrics table if needed.
func (p *Postgres) CreateSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, metricSchema); err != nil {
		return fmt.Errorf("metricstore: create schema: %w", err)
	}
	return nil
}

func (p *Postgres) Append(ctx context.Context, m types.QualityMetric) error {
	_, err := p.pool.Exec(ctx, appendSQL,
		m.SegmentID, m.VideoID, m.Provider, m.DurationRatio, m.RMSLevel,
		m.PitchHz, m.StretchFactor, m.Trimmed, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("metricstore: append: %w", err)
	}
	return nil
}

func (p *Postgres) ListBySegment(ctx context.Context, segmentID int64) ([]types.QualityMetric, error) {
	rows, err := p.pool.Query(ctx, listSQL, segmentID)
	if err != nil {
		return nil, fmt.Errorf("metricstore: list: %w", err)
	}
	defer rows.Close()

	var out []types.QualityMetric
	for rows.Next() {
		var m types.QualityMetric
		err := rows.Scan(&m.SegmentID, &m.VideoID, &m.Provider, &m.DurationRatio,
			&m.RMSLevel, &m.PitchHz, &m.StretchFactor, &m.Trimmed, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("metricstore: scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metricstore: list rows: %w", err)
	}
	return out, nil
}
