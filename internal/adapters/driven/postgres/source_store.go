package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.SourceStore  = (*SourceStore)(nil)
	_ driven.SourceWriter = (*SourceStore)(nil)
)

// SourceStore implements the cached snapshot store on PostgreSQL.
//
// Attachment content is encrypted at rest when an encryptor is configured;
// task text stays plain, it is the user's own and searchable in the task
// manager anyway. Pass a nil encryptor to store everything in the clear.
type SourceStore struct {
	db        *DB
	encryptor *ContentEncryptor
}

// NewSourceStore creates a new SourceStore
func NewSourceStore(db *DB, encryptor *ContentEncryptor) *SourceStore {
	return &SourceStore{db: db, encryptor: encryptor}
}

// Get returns the current snapshot for a source id
func (s *SourceStore) Get(ctx context.Context, sourceID string) (*domain.SourceDocument, error) {
	query := `
		SELECT source_id, kind, parent_task_id, title, content, encrypted,
		       status, priority, eta, tags, attachment_type, updated_at
		FROM source_documents
		WHERE source_id = $1
	`

	var (
		doc            domain.SourceDocument
		kind           string
		parentTaskID   sql.NullString
		content        []byte
		encrypted      bool
		status         sql.NullString
		priority       sql.NullString
		eta            sql.NullTime
		tags           pq.StringArray
		attachmentType sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, sourceID).Scan(
		&doc.SourceID, &kind, &parentTaskID, &doc.Title, &content, &encrypted,
		&status, &priority, &eta, &tags, &attachmentType, &doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSourceNotFound
	}
	if err != nil {
		return nil, err
	}

	if encrypted {
		if s.encryptor == nil {
			return nil, fmt.Errorf("source %s is encrypted but no encryption secret is configured", sourceID)
		}
		plaintext, err := s.encryptor.Decrypt(content)
		if err != nil {
			return nil, fmt.Errorf("decrypt source %s: %w", sourceID, err)
		}
		content = plaintext
	}

	doc.Kind = domain.SourceKind(kind)
	if parentTaskID.Valid {
		doc.ParentTaskID = parentTaskID.String
	}
	doc.Text = string(content)
	doc.Metadata = domain.Metadata{
		Status:         domain.Status(status.String),
		Priority:       domain.Priority(priority.String),
		ETA:            TimePtr(eta),
		Tags:           tags,
		AttachmentType: domain.AttachmentType(attachmentType.String),
		UpdatedAt:      doc.UpdatedAt,
	}
	return &doc, nil
}

// ListIDs returns every indexable source id
func (s *SourceStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source_id FROM source_documents ORDER BY source_id`)
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

// Save creates or replaces a snapshot
func (s *SourceStore) Save(ctx context.Context, doc *domain.SourceDocument) error {
	content := []byte(doc.Text)
	encrypted := false
	if s.encryptor != nil && doc.Kind == domain.SourceKindAttachment {
		blob, err := s.encryptor.Encrypt(content)
		if err != nil {
			return fmt.Errorf("encrypt source %s: %w", doc.SourceID, err)
		}
		content = blob
		encrypted = true
	}

	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO source_documents
			(source_id, kind, parent_task_id, title, content, encrypted,
			 status, priority, eta, tags, attachment_type, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (source_id) DO UPDATE SET
			kind = EXCLUDED.kind,
			parent_task_id = EXCLUDED.parent_task_id,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			encrypted = EXCLUDED.encrypted,
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			eta = EXCLUDED.eta,
			tags = EXCLUDED.tags,
			attachment_type = EXCLUDED.attachment_type,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		doc.SourceID,
		string(doc.Kind),
		NullString(ptrIfSet(doc.ParentTaskID)),
		doc.Title,
		content,
		encrypted,
		NullString(ptrIfSet(string(doc.Metadata.Status))),
		NullString(ptrIfSet(string(doc.Metadata.Priority))),
		NullTime(doc.Metadata.ETA),
		pq.Array(doc.Metadata.Tags),
		NullString(ptrIfSet(string(doc.Metadata.AttachmentType))),
		updatedAt,
	)
	return err
}

// Delete removes a snapshot. Missing is not an error.
func (s *SourceStore) Delete(ctx context.Context, sourceID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM source_documents WHERE source_id = $1`, sourceID)
	return err
}
