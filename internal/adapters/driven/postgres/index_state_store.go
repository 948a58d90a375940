package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IndexStateStore = (*IndexStateStore)(nil)

// IndexStateStore implements driven.IndexStateStore using PostgreSQL
type IndexStateStore struct {
	db *DB
}

// NewIndexStateStore creates a new IndexStateStore
func NewIndexStateStore(db *DB) *IndexStateStore {
	return &IndexStateStore{db: db}
}

// Get returns the state for a source
func (s *IndexStateStore) Get(ctx context.Context, sourceID string) (*domain.IndexState, error) {
	query := `
		SELECT source_id, chunk_ids, status, model_version, last_indexed_at, error
		FROM index_states
		WHERE source_id = $1
	`

	var (
		state         domain.IndexState
		chunkIDs      pq.StringArray
		status        string
		lastIndexedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, sourceID).Scan(
		&state.SourceID,
		&chunkIDs,
		&status,
		&state.ModelVersion,
		&lastIndexedAt,
		&state.Error,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	state.ChunkIDs = chunkIDs
	state.Status = domain.IndexStatus(status)
	state.LastIndexedAt = TimePtr(lastIndexedAt)
	return &state, nil
}

// Save creates or replaces the state for a source
func (s *IndexStateStore) Save(ctx context.Context, state *domain.IndexState) error {
	query := `
		INSERT INTO index_states (source_id, chunk_ids, status, model_version, last_indexed_at, error)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source_id) DO UPDATE SET
			chunk_ids = EXCLUDED.chunk_ids,
			status = EXCLUDED.status,
			model_version = EXCLUDED.model_version,
			last_indexed_at = EXCLUDED.last_indexed_at,
			error = EXCLUDED.error
	`

	_, err := s.db.ExecContext(ctx, query,
		state.SourceID,
		pq.Array(state.ChunkIDs),
		string(state.Status),
		state.ModelVersion,
		NullTime(state.LastIndexedAt),
		state.Error,
	)
	return err
}

// Delete removes the state for a source. Missing is not an error.
func (s *IndexStateStore) Delete(ctx context.Context, sourceID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM index_states WHERE source_id = $1`, sourceID)
	return err
}

// ListByStatus returns the source ids currently in the given status
func (s *IndexStateStore) ListByStatus(ctx context.Context, status domain.IndexStatus) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_id FROM index_states WHERE status = $1 ORDER BY source_id`,
		string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
