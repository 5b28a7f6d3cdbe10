package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/openslate/docshare/store"
)

func (d *DB) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	tags, err := marshalTags(create.Tags)
	if err != nil {
		return nil, err
	}

	stmt := `
		INSERT INTO document (uid, creator_id, title, description, tags, summary, visibility, moderation_status)
		VALUES (` + placeholders(8) + `)
		RETURNING id, created_ts, updated_ts
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.CreatorID,
		create.Title,
		create.Description,
		tags,
		create.Summary,
		create.Visibility,
		create.ModerationStatus,
	).Scan(&create.ID, &create.CreatedTs, &create.UpdatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to create document")
	}
	return create, nil
}

func (d *DB) ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if len(find.IDs) > 0 {
		list := []string{}
		for _, id := range find.IDs {
			list, args = append(list, placeholder(len(args)+1)), append(args, id)
		}
		where = append(where, "id IN ("+strings.Join(list, ", ")+")")
	}
	if find.CreatorID != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *find.CreatorID)
	}
	if find.ExcludeID != nil {
		where, args = append(where, "id != "+placeholder(len(args)+1)), append(args, *find.ExcludeID)
	}
	if find.Visibility != nil {
		where, args = append(where, "visibility = "+placeholder(len(args)+1)), append(args, *find.Visibility)
	}
	if find.ExcludeModerationStatus != nil {
		where, args = append(where, "moderation_status != "+placeholder(len(args)+1)), append(args, *find.ExcludeModerationStatus)
	}

	query := `
		SELECT id, uid, creator_id, title, description, tags, summary, visibility, moderation_status, created_ts, updated_ts
		FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer rows.Close()

	list := []*store.Document{}
	for rows.Next() {
		var document store.Document
		var tags string
		if err := rows.Scan(
			&document.ID,
			&document.UID,
			&document.CreatorID,
			&document.Title,
			&document.Description,
			&tags,
			&document.Summary,
			&document.Visibility,
			&document.ModerationStatus,
			&document.CreatedTs,
			&document.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		if err := json.Unmarshal([]byte(tags), &document.Tags); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal document tags")
		}
		list = append(list, &document)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) ListDocumentIDs(ctx context.Context, find *store.FindDocument) ([]int32, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.CreatorID != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *find.CreatorID)
	}
	if find.ExcludeID != nil {
		where, args = append(where, "id != "+placeholder(len(args)+1)), append(args, *find.ExcludeID)
	}
	if find.Visibility != nil {
		where, args = append(where, "visibility = "+placeholder(len(args)+1)), append(args, *find.Visibility)
	}
	if find.ExcludeModerationStatus != nil {
		where, args = append(where, "moderation_status != "+placeholder(len(args)+1)), append(args, *find.ExcludeModerationStatus)
	}

	query := `
		SELECT id FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list document ids")
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

func (d *DB) FindDocumentsByFileHash(ctx context.Context, hashes []string, excludeID int32) ([]*store.Document, error) {
	if len(hashes) == 0 {
		return []*store.Document{}, nil
	}

	args := []any{}
	list := []string{}
	for _, hash := range hashes {
		list, args = append(list, placeholder(len(args)+1)), append(args, hash)
	}
	args = append(args, excludeID)

	query := `
		SELECT DISTINCT d.id, d.uid, d.creator_id, d.title, d.description, d.tags, d.summary, d.visibility, d.moderation_status, d.created_ts, d.updated_ts
		FROM document d
		INNER JOIN document_file f ON f.document_id = d.id
		WHERE f.content_hash IN (` + strings.Join(list, ", ") + `)
			AND d.id != ` + placeholder(len(args)) + `
			AND d.visibility = 'PUBLIC'
			AND d.moderation_status != 'REJECTED'
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find documents by file hash")
	}
	defer rows.Close()

	documents := []*store.Document{}
	for rows.Next() {
		var document store.Document
		var tags string
		if err := rows.Scan(
			&document.ID,
			&document.UID,
			&document.CreatorID,
			&document.Title,
			&document.Description,
			&tags,
			&document.Summary,
			&document.Visibility,
			&document.ModerationStatus,
			&document.CreatedTs,
			&document.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		if err := json.Unmarshal([]byte(tags), &document.Tags); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal document tags")
		}
		documents = append(documents, &document)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return documents, nil
}

func (d *DB) CreateFile(ctx context.Context, create *store.File) (*store.File, error) {
	stmt := `
		INSERT INTO document_file (document_id, name, mime_type, storage_key, content_hash, extracted_text, size_bytes)
		VALUES (` + placeholders(7) + `)
		RETURNING id, created_ts
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.DocumentID,
		create.Name,
		create.MimeType,
		create.StorageKey,
		create.ContentHash,
		create.ExtractedText,
		create.SizeBytes,
	).Scan(&create.ID, &create.CreatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to create file")
	}
	return create, nil
}

func (d *DB) ListFiles(ctx context.Context, find *store.FindFile) ([]*store.File, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.DocumentID != nil {
		where, args = append(where, "document_id = "+placeholder(len(args)+1)), append(args, *find.DocumentID)
	}
	if len(find.DocumentIDs) > 0 {
		list := []string{}
		for _, id := range find.DocumentIDs {
			list, args = append(list, placeholder(len(args)+1)), append(args, id)
		}
		where = append(where, "document_id IN ("+strings.Join(list, ", ")+")")
	}

	query := `
		SELECT id, document_id, name, mime_type, storage_key, content_hash, extracted_text, size_bytes, created_ts
		FROM document_file
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id ASC
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list files")
	}
	defer rows.Close()

	files := []*store.File{}
	for rows.Next() {
		var file store.File
		if err := rows.Scan(
			&file.ID,
			&file.DocumentID,
			&file.Name,
			&file.MimeType,
			&file.StorageKey,
			&file.ContentHash,
			&file.ExtractedText,
			&file.SizeBytes,
			&file.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan file")
		}
		files = append(files, &file)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal document tags")
	}
	return string(raw), nil
}
