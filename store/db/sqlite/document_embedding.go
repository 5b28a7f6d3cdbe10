package sqlite

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/openslate/docshare/store"
)

// SQLite stores embedding vectors as JSON text. Cosine similarity runs in Go,
// so no vector extension is needed.

func (d *DB) UpsertDocumentEmbedding(ctx context.Context, embedding *store.DocumentEmbedding) (*store.DocumentEmbedding, error) {
	vector, err := json.Marshal(embedding.Embedding)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal embedding vector")
	}

	stmt := `
		INSERT INTO document_embedding (document_id, embedding, model, created_ts, updated_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (document_id, model)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		embedding.DocumentID,
		string(vector),
		embedding.Model,
		embedding.CreatedTs,
		embedding.UpdatedTs,
	).Scan(&embedding.ID, &embedding.CreatedTs, &embedding.UpdatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to upsert document embedding")
	}
	return embedding, nil
}

func (d *DB) ListDocumentEmbeddings(ctx context.Context, find *store.FindDocumentEmbedding) ([]*store.DocumentEmbedding, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.DocumentID != nil {
		where, args = append(where, "document_id = "+placeholder(len(args)+1)), append(args, *find.DocumentID)
	}
	if find.Model != nil {
		where, args = append(where, "model = "+placeholder(len(args)+1)), append(args, *find.Model)
	}

	query := `
		SELECT id, document_id, embedding, model, created_ts, updated_ts
		FROM document_embedding
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list document embeddings")
	}
	defer rows.Close()

	list := []*store.DocumentEmbedding{}
	for rows.Next() {
		var embedding store.DocumentEmbedding
		var vector string
		if err := rows.Scan(
			&embedding.ID,
			&embedding.DocumentID,
			&vector,
			&embedding.Model,
			&embedding.CreatedTs,
			&embedding.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan document embedding")
		}
		if err := json.Unmarshal([]byte(vector), &embedding.Embedding); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal embedding vector")
		}
		list = append(list, &embedding)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) ListDocumentIDsWithoutEmbedding(ctx context.Context, model string, limit int) ([]int32, error) {
	query := `
		SELECT d.id
		FROM document d
		LEFT JOIN document_embedding e ON e.document_id = d.id AND e.model = ` + placeholder(1) + `
		WHERE e.id IS NULL
		ORDER BY d.created_ts DESC
		LIMIT ` + placeholder(2)

	rows, err := d.db.QueryContext(ctx, query, model, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents without embedding")
	}
	defer rows.Close()

	ids := []int32{}
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan document id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (d *DB) DeleteDocumentEmbedding(ctx context.Context, documentID int32) error {
	stmt := `DELETE FROM document_embedding WHERE document_id = ` + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, documentID); err != nil {
		return errors.Wrap(err, "failed to delete document embedding")
	}
	return nil
}
