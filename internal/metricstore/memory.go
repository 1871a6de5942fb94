package metricstore

import (
	"context"
	"sync"

	"github.com/bekzodm/dubpipe/pkg/types"
)

// Compile-time interface assertion.
var _ Store = (*Memory)(nil)

// Memory keeps metrics in process. Used in tests and single-node runs
// where no database is configured.
type Memory struct {
	mu      sync.Mutex
	records []types.QualityMetric
}

// NewMemory creates an in-process Store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, rec types.QualityMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *Memory) ListBySegment(_ context.Context, segmentID int64) ([]types.QualityMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.QualityMetric
	for _, rec := range m.records {
		if rec.SegmentID == segmentID {
			out = append(out, rec)
		}
	}
	return out, nil
}
