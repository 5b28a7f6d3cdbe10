package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/openslate/docshare/store"
)

// ReplaceSimilarityRecords deletes all prior records for the source document
// and inserts the new set inside one transaction.
func (d *DB) ReplaceSimilarityRecords(ctx context.Context, sourceDocumentID int32, records []*store.SimilarityRecord) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM similarity_record WHERE source_document_id = `+placeholder(1),
		sourceDocumentID,
	); err != nil {
		return errors.Wrap(err, "failed to delete prior similarity records")
	}

	stmt := `
		INSERT INTO similarity_record (source_document_id, target_document_id, score, type, created_ts)
		VALUES (` + placeholders(5) + `)
		RETURNING id
	`
	for _, record := range records {
		if err := tx.QueryRowContext(ctx, stmt,
			sourceDocumentID,
			record.TargetDocumentID,
			record.Score,
			record.Type,
			record.CreatedTs,
		).Scan(&record.ID); err != nil {
			return errors.Wrap(err, "failed to insert similarity record")
		}
		record.SourceDocumentID = sourceDocumentID
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit similarity records")
	}
	return nil
}

func (d *DB) ListSimilarityRecords(ctx context.Context, find *store.FindSimilarityRecord) ([]*store.SimilarityRecord, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.SourceDocumentID != nil {
		where, args = append(where, "source_document_id = "+placeholder(len(args)+1)), append(args, *find.SourceDocumentID)
	}
	if find.Processed != nil {
		where, args = append(where, "processed = "+placeholder(len(args)+1)), append(args, *find.Processed)
	}

	query := `
		SELECT id, source_document_id, target_document_id, score, type, processed, is_duplicate, notes, processed_by, processed_ts, created_ts
		FROM similarity_record
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY score DESC, id ASC
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list similarity records")
	}
	defer rows.Close()

	list := []*store.SimilarityRecord{}
	for rows.Next() {
		var record store.SimilarityRecord
		if err := rows.Scan(
			&record.ID,
			&record.SourceDocumentID,
			&record.TargetDocumentID,
			&record.Score,
			&record.Type,
			&record.Processed,
			&record.IsDuplicate,
			&record.Notes,
			&record.ProcessedBy,
			&record.ProcessedTs,
			&record.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan similarity record")
		}
		list = append(list, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateSimilarityRecord(ctx context.Context, update *store.UpdateSimilarityRecord) error {
	set, args := []string{}, []any{}

	if update.Processed != nil {
		set, args = append(set, "processed = "+placeholder(len(args)+1)), append(args, *update.Processed)
	}
	if update.IsDuplicate != nil {
		set, args = append(set, "is_duplicate = "+placeholder(len(args)+1)), append(args, *update.IsDuplicate)
	}
	if update.Notes != nil {
		set, args = append(set, "notes = "+placeholder(len(args)+1)), append(args, *update.Notes)
	}
	if update.ProcessedBy != nil {
		set, args = append(set, "processed_by = "+placeholder(len(args)+1)), append(args, *update.ProcessedBy)
	}
	if update.ProcessedTs != nil {
		set, args = append(set, "processed_ts = "+placeholder(len(args)+1)), append(args, *update.ProcessedTs)
	}
	if len(set) == 0 {
		return errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE similarity_record SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to update similarity record")
	}
	return nil
}
