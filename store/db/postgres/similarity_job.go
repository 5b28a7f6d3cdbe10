package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/openslate/docshare/store"
)

func (d *DB) CreateSimilarityJob(ctx context.Context, create *store.SimilarityJob) (*store.SimilarityJob, error) {
	stmt := `
		INSERT INTO similarity_job (uid, document_id, status, progress)
		VALUES (` + placeholders(4) + `)
		RETURNING id, started_ts
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.DocumentID,
		create.Status,
		create.Progress,
	).Scan(&create.ID, &create.StartedTs); err != nil {
		return nil, errors.Wrap(err, "failed to create similarity job")
	}
	return create, nil
}

func (d *DB) ListSimilarityJobs(ctx context.Context, find *store.FindSimilarityJob) ([]*store.SimilarityJob, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.DocumentID != nil {
		where, args = append(where, "document_id = "+placeholder(len(args)+1)), append(args, *find.DocumentID)
	}

	query := `
		SELECT id, uid, document_id, status, progress, started_ts, completed_ts, error_message
		FROM similarity_job
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY started_ts DESC, id DESC
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list similarity jobs")
	}
	defer rows.Close()

	list := []*store.SimilarityJob{}
	for rows.Next() {
		var job store.SimilarityJob
		if err := rows.Scan(
			&job.ID,
			&job.UID,
			&job.DocumentID,
			&job.Status,
			&job.Progress,
			&job.StartedTs,
			&job.CompletedTs,
			&job.ErrorMessage,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan similarity job")
		}
		list = append(list, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateSimilarityJob(ctx context.Context, update *store.UpdateSimilarityJob) error {
	set, args := []string{}, []any{}

	if update.Status != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *update.Status)
	}
	if update.Progress != nil {
		set, args = append(set, "progress = "+placeholder(len(args)+1)), append(args, *update.Progress)
	}
	if update.CompletedTs != nil {
		set, args = append(set, "completed_ts = "+placeholder(len(args)+1)), append(args, *update.CompletedTs)
	}
	if update.ErrorMessage != nil {
		set, args = append(set, "error_message = "+placeholder(len(args)+1)), append(args, *update.ErrorMessage)
	}
	if len(set) == 0 {
		return errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE similarity_job SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to update similarity job")
	}
	return nil
}
