package moderation

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openslate/docshare/internal/profile"
	"github.com/openslate/docshare/store"
)

// fakeDriver implements the slice of store.Driver the moderation service
// touches; everything else is a no-op.
type fakeDriver struct {
	documents map[int32]*store.Document
	records   []*store.SimilarityRecord
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{documents: map[int32]*store.Document{}}
}

func (d *fakeDriver) GetDB() *sql.DB                              { return nil }
func (d *fakeDriver) Close() error                                { return nil }
func (d *fakeDriver) IsInitialized(context.Context) (bool, error) { return true, nil }

func (d *fakeDriver) CreateDocument(_ context.Context, create *store.Document) (*store.Document, error) {
	d.documents[create.ID] = create
	return create, nil
}

func (d *fakeDriver) ListDocuments(_ context.Context, find *store.FindDocument) ([]*store.Document, error) {
	list := []*store.Document{}
	for _, id := range find.IDs {
		if doc, ok := d.documents[id]; ok {
			list = append(list, doc)
		}
	}
	return list, nil
}

func (d *fakeDriver) ListDocumentIDs(context.Context, *store.FindDocument) ([]int32, error) {
	return nil, nil
}

func (d *fakeDriver) FindDocumentsByFileHash(context.Context, []string, int32) ([]*store.Document, error) {
	return nil, nil
}

func (d *fakeDriver) CreateFile(_ context.Context, create *store.File) (*store.File, error) {
	return create, nil
}

func (d *fakeDriver) ListFiles(context.Context, *store.FindFile) ([]*store.File, error) {
	return nil, nil
}

func (d *fakeDriver) UpsertDocumentEmbedding(_ context.Context, embedding *store.DocumentEmbedding) (*store.DocumentEmbedding, error) {
	return embedding, nil
}

func (d *fakeDriver) ListDocumentEmbeddings(context.Context, *store.FindDocumentEmbedding) ([]*store.DocumentEmbedding, error) {
	return nil, nil
}

func (d *fakeDriver) ListDocumentIDsWithoutEmbedding(context.Context, string, int) ([]int32, error) {
	return nil, nil
}

func (d *fakeDriver) DeleteDocumentEmbedding(context.Context, int32) error { return nil }

func (d *fakeDriver) ReplaceSimilarityRecords(_ context.Context, sourceDocumentID int32, records []*store.SimilarityRecord) error {
	d.records = records
	return nil
}

func (d *fakeDriver) ListSimilarityRecords(_ context.Context, find *store.FindSimilarityRecord) ([]*store.SimilarityRecord, error) {
	list := []*store.SimilarityRecord{}
	for _, record := range d.records {
		if find.ID != nil && record.ID != *find.ID {
			continue
		}
		if find.SourceDocumentID != nil && record.SourceDocumentID != *find.SourceDocumentID {
			continue
		}
		if find.Processed != nil && record.Processed != *find.Processed {
			continue
		}
		list = append(list, record)
	}
	return list, nil
}

func (d *fakeDriver) UpdateSimilarityRecord(_ context.Context, update *store.UpdateSimilarityRecord) error {
	for _, record := range d.records {
		if record.ID != update.ID {
			continue
		}
		if update.Processed != nil {
			record.Processed = *update.Processed
		}
		if update.IsDuplicate != nil {
			record.IsDuplicate = update.IsDuplicate
		}
		if update.Notes != nil {
			record.Notes = *update.Notes
		}
		if update.ProcessedBy != nil {
			record.ProcessedBy = update.ProcessedBy
		}
		if update.ProcessedTs != nil {
			record.ProcessedTs = update.ProcessedTs
		}
	}
	return nil
}

func (d *fakeDriver) CreateSimilarityJob(_ context.Context, create *store.SimilarityJob) (*store.SimilarityJob, error) {
	return create, nil
}

func (d *fakeDriver) ListSimilarityJobs(context.Context, *store.FindSimilarityJob) ([]*store.SimilarityJob, error) {
	return nil, nil
}

func (d *fakeDriver) UpdateSimilarityJob(context.Context, *store.UpdateSimilarityJob) error {
	return nil
}

func newTestService(driver *fakeDriver) *Service {
	return NewService(store.New(driver, &profile.Profile{Driver: "sqlite"}))
}

func TestListPending(t *testing.T) {
	driver := newFakeDriver()
	driver.documents[2] = &store.Document{ID: 2, UID: "target-a", Title: "Target A", CreatorID: 7, Tags: []string{"report"}}
	driver.documents[3] = &store.Document{ID: 3, UID: "target-b", Title: "Target B", CreatorID: 8}
	driver.records = []*store.SimilarityRecord{
		{ID: 10, SourceDocumentID: 1, TargetDocumentID: 2, Score: 0.8, Type: "text"},
		{ID: 11, SourceDocumentID: 1, TargetDocumentID: 3, Score: 0.95, Type: "hash"},
		{ID: 12, SourceDocumentID: 1, TargetDocumentID: 2, Score: 0.9, Type: "text", Processed: true},
	}
	svc := newTestService(driver)

	pending, err := svc.ListPending(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, item := range pending {
		require.False(t, item.Record.Processed)
		require.NotNil(t, item.Target)
	}
	// Highest score first, even though the driver yielded insertion order.
	require.Equal(t, 0.95, pending[0].Record.Score)
	require.Equal(t, "Target B", pending[0].Target.Title)
	require.Equal(t, 0.8, pending[1].Record.Score)
}

func TestRecordDecision(t *testing.T) {
	driver := newFakeDriver()
	driver.records = []*store.SimilarityRecord{
		{ID: 10, SourceDocumentID: 1, TargetDocumentID: 2, Score: 0.8, Type: "text"},
	}
	svc := newTestService(driver)
	ctx := context.Background()

	require.NoError(t, svc.RecordDecision(ctx, 10, 42, true, "same file re-uploaded"))

	record := driver.records[0]
	require.True(t, record.Processed)
	require.NotNil(t, record.IsDuplicate)
	require.True(t, *record.IsDuplicate)
	require.Equal(t, int32(42), *record.ProcessedBy)
	require.NotNil(t, record.ProcessedTs)

	// One-way transition: a second decision is rejected.
	err := svc.RecordDecision(ctx, 10, 43, false, "")
	require.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestRecordDecisionNotFound(t *testing.T) {
	svc := newTestService(newFakeDriver())
	err := svc.RecordDecision(context.Background(), 999, 1, false, "")
	require.ErrorIs(t, err, ErrRecordNotFound)
}
