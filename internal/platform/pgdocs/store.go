// Package pgdocs stores platform documents as JSONB rows in Postgres.
package pgdocs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carepulse/carepulse/internal/platform"
)

const uniqueViolation = "23505"

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store implements platform.Documents on the documents table.
type Store struct {
	db querier
}

// NewStore wires the store to a pgx pool.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("pgdocs: pgx pool required")
	}
	return &Store{db: pool}
}

func newStoreWithQuerier(db querier) *Store {
	if db == nil {
		panic("pgdocs: querier required")
	}
	return &Store{db: db}
}

// CreateDocument inserts a new row. A duplicate id maps to platform.ErrConflict.
func (s *Store) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*platform.Document, error) {
	clean := platform.StripSystemAttrs(data)
	payload, err := json.Marshal(clean)
	if err != nil {
		return nil, fmt.Errorf("pgdocs: encode data: %w", err)
	}
	query := `
		INSERT INTO documents (database_id, collection_id, id, data)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	doc := &platform.Document{ID: documentID, DatabaseID: databaseID, CollectionID: collectionID}
	if err := s.db.QueryRow(ctx, query, databaseID, collectionID, documentID, payload).Scan(&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("pgdocs: document %s: %w", documentID, platform.ErrConflict)
		}
		return nil, fmt.Errorf("pgdocs: insert document: %w", err)
	}
	if err := json.Unmarshal(payload, &doc.Data); err != nil {
		return nil, fmt.Errorf("pgdocs: decode data: %w", err)
	}
	return doc, nil
}

// GetDocument loads one row.
func (s *Store) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (*platform.Document, error) {
	query := `
		SELECT data, created_at, updated_at
		FROM documents
		WHERE database_id = $1 AND collection_id = $2 AND id = $3
	`
	doc := &platform.Document{ID: documentID, DatabaseID: databaseID, CollectionID: collectionID}
	var raw []byte
	if err := s.db.QueryRow(ctx, query, databaseID, collectionID, documentID).Scan(&raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pgdocs: document %s: %w", documentID, platform.ErrNotFound)
		}
		return nil, fmt.Errorf("pgdocs: get document: %w", err)
	}
	if err := decodeData(raw, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateDocument merges data into the stored JSONB and bumps updated_at.
func (s *Store) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*platform.Document, error) {
	payload, err := json.Marshal(platform.StripSystemAttrs(data))
	if err != nil {
		return nil, fmt.Errorf("pgdocs: encode data: %w", err)
	}
	query := `
		UPDATE documents
		SET data = data || $4::jsonb, updated_at = now()
		WHERE database_id = $1 AND collection_id = $2 AND id = $3
		RETURNING data, created_at, updated_at
	`
	doc := &platform.Document{ID: documentID, DatabaseID: databaseID, CollectionID: collectionID}
	var raw []byte
	if err := s.db.QueryRow(ctx, query, databaseID, collectionID, documentID, payload).Scan(&raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pgdocs: document %s: %w", documentID, platform.ErrNotFound)
		}
		return nil, fmt.Errorf("pgdocs: update document: %w", err)
	}
	if err := decodeData(raw, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments translates queries into SQL. Total counts every match before the limit.
func (s *Store) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...platform.Query) (*platform.DocumentList, error) {
	where, orderBy, limit, args, err := buildClauses(queries, databaseID, collectionID)
	if err != nil {
		return nil, err
	}

	var total int
	countSQL := "SELECT COUNT(*) FROM documents WHERE " + where
	if err := s.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("pgdocs: count documents: %w", err)
	}

	selectSQL := "SELECT id, data, created_at, updated_at FROM documents WHERE " + where + orderBy
	if limit >= 0 {
		args = append(args, limit)
		selectSQL += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.db.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("pgdocs: list documents: %w", err)
	}
	defer rows.Close()

	list := &platform.DocumentList{Total: total, Documents: []*platform.Document{}}
	for rows.Next() {
		doc := &platform.Document{DatabaseID: databaseID, CollectionID: collectionID}
		var raw []byte
		if err := rows.Scan(&doc.ID, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgdocs: scan document: %w", err)
		}
		if err := decodeData(raw, doc); err != nil {
			return nil, err
		}
		list.Documents = append(list.Documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgdocs: iterate documents: %w", err)
	}
	return list, nil
}

func buildClauses(queries []platform.Query, databaseID, collectionID string) (where, orderBy string, limit int, args []any, err error) {
	args = []any{databaseID, collectionID}
	conds := []string{"database_id = $1", "collection_id = $2"}
	var orders []string
	limit = -1
	for _, q := range queries {
		if err = q.Validate(); err != nil {
			return "", "", 0, nil, err
		}
		switch q.Kind {
		case platform.QueryEqual:
			args = append(args, q.Values)
			conds = append(conds, fmt.Sprintf("%s = ANY($%d)", column(q.Field), len(args)))
		case platform.QueryOrderAsc:
			orders = append(orders, column(q.Field)+" ASC")
		case platform.QueryOrderDesc:
			orders = append(orders, column(q.Field)+" DESC")
		case platform.QueryLimit:
			limit = q.Limit
		}
	}
	where = strings.Join(conds, " AND ")
	if len(orders) > 0 {
		orderBy = " ORDER BY " + strings.Join(orders, ", ")
	}
	return where, orderBy, limit, args, nil
}

// column maps an attribute to SQL. Field names are validated identifiers, so
// quoting them into the JSON path is safe.
func column(field string) string {
	switch field {
	case platform.AttrID:
		return "id"
	case platform.AttrCreatedAt:
		return "created_at"
	case platform.AttrUpdatedAt:
		return "updated_at"
	}
	return fmt.Sprintf("data->>'%s'", field)
}

func decodeData(raw []byte, doc *platform.Document) error {
	doc.Data = map[string]any{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return fmt.Errorf("pgdocs: decode document %s: %w", doc.ID, err)
	}
	if doc.Data == nil {
		doc.Data = map[string]any{}
	}
	return nil
}

var _ platform.Documents = (*Store)(nil)
