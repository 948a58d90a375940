package postgres

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex implements driven.VectorIndex on PostgreSQL.
//
// Metadata filters translate to WHERE clauses; similarity is scored in Go
// over the filtered candidate set. write_seq comes from a shared sequence so
// a racing older batch can never overwrite a newer row.
type VectorIndex struct {
	db *DB
}

// NewVectorIndex creates a new VectorIndex
func NewVectorIndex(db *DB) *VectorIndex {
	return &VectorIndex{db: db}
}

const upsertEntryQuery = `
	INSERT INTO index_entries
		(chunk_id, source_id, kind, parent_task_id, content, embedding, model_version,
		 status, priority, eta, tags, attachment_type, updated_at, write_seq)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, nextval('index_entries_write_seq'))
	ON CONFLICT (chunk_id) DO UPDATE SET
		source_id = EXCLUDED.source_id,
		kind = EXCLUDED.kind,
		parent_task_id = EXCLUDED.parent_task_id,
		content = EXCLUDED.content,
		embedding = EXCLUDED.embedding,
		model_version = EXCLUDED.model_version,
		status = EXCLUDED.status,
		priority = EXCLUDED.priority,
		eta = EXCLUDED.eta,
		tags = EXCLUDED.tags,
		attachment_type = EXCLUDED.attachment_type,
		updated_at = EXCLUDED.updated_at,
		write_seq = EXCLUDED.write_seq
	WHERE index_entries.write_seq < EXCLUDED.write_seq
`

// Upsert inserts or replaces an entry by chunk_id
func (s *VectorIndex) Upsert(ctx context.Context, entry *domain.IndexEntry) error {
	_, err := s.db.ExecContext(ctx, upsertEntryQuery, entryArgs(entry)...)
	return err
}

// UpsertBatch upserts multiple entries in a transaction, so a query sees a
// source's new chunk set all at once or not at all
func (s *VectorIndex) UpsertBatch(ctx context.Context, entries []*domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertEntryQuery)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, entry := range entries {
			if _, err := stmt.ExecContext(ctx, entryArgs(entry)...); err != nil {
				return err
			}
		}
		return nil
	})
}

func entryArgs(entry *domain.IndexEntry) []interface{} {
	return []interface{}{
		entry.ChunkID,
		entry.SourceID,
		string(entry.Kind),
		NullString(ptrIfSet(entry.ParentTaskID)),
		entry.Text,
		encodeVector(entry.Embedding),
		entry.ModelVersion,
		NullString(ptrIfSet(string(entry.Metadata.Status))),
		NullString(ptrIfSet(string(entry.Metadata.Priority))),
		NullTime(entry.Metadata.ETA),
		pq.Array(entry.Metadata.Tags),
		NullString(ptrIfSet(string(entry.Metadata.AttachmentType))),
		entry.Metadata.UpdatedAt,
	}
}

// DeleteByChunkIDs removes entries by id. Missing ids are not an error.
func (s *VectorIndex) DeleteByChunkIDs(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM index_entries WHERE chunk_id = ANY($1)`,
		pq.Array(chunkIDs))
	return err
}

// DeleteBySourceID removes every chunk belonging to a source document
func (s *VectorIndex) DeleteBySourceID(ctx context.Context, sourceID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM index_entries WHERE source_id = $1`,
		sourceID)
	return err
}

// Query returns up to topK entries nearest to the vector, restricted to
// entries matching all filters
func (s *VectorIndex) Query(ctx context.Context, vector []float32, topK int, filters domain.Filters) ([]*domain.RetrievalResult, error) {
	where, args := filterClauses(filters)

	query := `
		SELECT chunk_id, source_id, kind, parent_task_id, content, embedding,
		       status, priority, eta, tags, attachment_type, updated_at
		FROM index_entries
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.RetrievalResult
	for rows.Next() {
		var (
			r              domain.RetrievalResult
			kind           string
			parentTaskID   sql.NullString
			embedding      []byte
			status         sql.NullString
			priority       sql.NullString
			eta            sql.NullTime
			tags           pq.StringArray
			attachmentType sql.NullString
		)
		if err := rows.Scan(
			&r.ChunkID, &r.SourceID, &kind, &parentTaskID, &r.Text, &embedding,
			&status, &priority, &eta, &tags, &attachmentType, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}

		r.Kind = domain.SourceKind(kind)
		if parentTaskID.Valid {
			r.ParentTaskID = parentTaskID.String
		}
		r.Metadata = domain.Metadata{
			Status:         domain.Status(status.String),
			Priority:       domain.Priority(priority.String),
			ETA:            TimePtr(eta),
			Tags:           tags,
			AttachmentType: domain.AttachmentType(attachmentType.String),
			UpdatedAt:      r.UpdatedAt,
		}
		r.Score = cosine(vector, decodeVector(embedding))
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// filterClauses translates metadata filters into WHERE clauses.
func filterClauses(f domain.Filters) ([]string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if f.ExcludeStatus != "" {
		where = append(where, "(status IS NULL OR status <> "+arg(string(f.ExcludeStatus))+")")
	}
	if f.Priority != "" {
		where = append(where, "priority = "+arg(string(f.Priority)))
	}
	if f.Kind != "" {
		where = append(where, "kind = "+arg(string(f.Kind)))
	}
	if f.AttachmentType != "" {
		where = append(where, "attachment_type = "+arg(string(f.AttachmentType)))
	}
	if f.ParentTaskID != "" {
		where = append(where, "parent_task_id = "+arg(f.ParentTaskID))
	}
	if f.DueBefore != nil {
		where = append(where, "eta IS NOT NULL AND eta <= "+arg(*f.DueBefore))
	}
	if f.DueAfter != nil {
		where = append(where, "eta IS NOT NULL AND eta >= "+arg(*f.DueAfter))
	}
	return where, args
}

// Count returns the number of entries in the collection
func (s *VectorIndex) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM index_entries`).Scan(&count)
	return count, err
}

// Ping checks the index backend is healthy
func (s *VectorIndex) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases resources. The shared DB pool is closed by its owner.
func (s *VectorIndex) Close() error {
	return nil
}

// encodeVector packs a float32 slice as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks little-endian bytes into a float32 slice.
func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

// cosine computes cosine similarity between two vectors.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func ptrIfSet(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
