package detection

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openslate/docshare/internal/profile"
	"github.com/openslate/docshare/plugin/ai"
	"github.com/openslate/docshare/store"
)

// fakeDriver is an in-memory store.Driver for service tests.
type fakeDriver struct {
	mu         sync.Mutex
	documents  map[int32]*store.Document
	files      []*store.File
	embeddings map[int32]*store.DocumentEmbedding
	records    []*store.SimilarityRecord
	jobs       map[int32]*store.SimilarityJob
	nextID     int32

	// failProgressUpdate makes UpdateSimilarityJob reject the progress-50
	// checkpoint, simulating a storage failure mid-lifecycle.
	failProgressUpdate bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		documents:  map[int32]*store.Document{},
		embeddings: map[int32]*store.DocumentEmbedding{},
		jobs:       map[int32]*store.SimilarityJob{},
	}
}

func (d *fakeDriver) id() int32 {
	d.nextID++
	return d.nextID
}

func (d *fakeDriver) GetDB() *sql.DB                              { return nil }
func (d *fakeDriver) Close() error                                { return nil }
func (d *fakeDriver) IsInitialized(context.Context) (bool, error) { return true, nil }

func (d *fakeDriver) CreateDocument(_ context.Context, create *store.Document) (*store.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	create.ID = d.id()
	d.documents[create.ID] = create
	return create, nil
}

func matchesDocument(doc *store.Document, find *store.FindDocument) bool {
	if find.ID != nil && doc.ID != *find.ID {
		return false
	}
	if find.UID != nil && doc.UID != *find.UID {
		return false
	}
	if len(find.IDs) > 0 {
		found := false
		for _, id := range find.IDs {
			if doc.ID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if find.CreatorID != nil && doc.CreatorID != *find.CreatorID {
		return false
	}
	if find.ExcludeID != nil && doc.ID == *find.ExcludeID {
		return false
	}
	if find.Visibility != nil && doc.Visibility != *find.Visibility {
		return false
	}
	if find.ExcludeModerationStatus != nil && doc.ModerationStatus == *find.ExcludeModerationStatus {
		return false
	}
	return true
}

func (d *fakeDriver) ListDocuments(_ context.Context, find *store.FindDocument) ([]*store.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.Document{}
	for _, doc := range d.documents {
		if matchesDocument(doc, find) {
			list = append(list, doc)
		}
	}
	if find.Limit != nil && len(list) > *find.Limit {
		list = list[:*find.Limit]
	}
	return list, nil
}

func (d *fakeDriver) ListDocumentIDs(ctx context.Context, find *store.FindDocument) ([]int32, error) {
	docs, err := d.ListDocuments(ctx, find)
	if err != nil {
		return nil, err
	}
	ids := []int32{}
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

func (d *fakeDriver) FindDocumentsByFileHash(_ context.Context, hashes []string, excludeID int32) ([]*store.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	hashSet := map[string]bool{}
	for _, h := range hashes {
		hashSet[h] = true
	}
	matched := map[int32]bool{}
	for _, file := range d.files {
		if file.ContentHash != "" && hashSet[file.ContentHash] {
			matched[file.DocumentID] = true
		}
	}
	list := []*store.Document{}
	for id := range matched {
		doc, ok := d.documents[id]
		if !ok || id == excludeID {
			continue
		}
		if doc.Visibility != store.Public || doc.ModerationStatus == store.ModerationRejected {
			continue
		}
		list = append(list, doc)
	}
	return list, nil
}

func (d *fakeDriver) CreateFile(_ context.Context, create *store.File) (*store.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	create.ID = d.id()
	d.files = append(d.files, create)
	return create, nil
}

func (d *fakeDriver) ListFiles(_ context.Context, find *store.FindFile) ([]*store.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.File{}
	for _, file := range d.files {
		if find.ID != nil && file.ID != *find.ID {
			continue
		}
		if find.DocumentID != nil && file.DocumentID != *find.DocumentID {
			continue
		}
		if len(find.DocumentIDs) > 0 {
			found := false
			for _, id := range find.DocumentIDs {
				if file.DocumentID == id {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		list = append(list, file)
	}
	return list, nil
}

func (d *fakeDriver) UpsertDocumentEmbedding(_ context.Context, embedding *store.DocumentEmbedding) (*store.DocumentEmbedding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if embedding.ID == 0 {
		embedding.ID = d.id()
	}
	d.embeddings[embedding.DocumentID] = embedding
	return embedding, nil
}

func (d *fakeDriver) ListDocumentEmbeddings(_ context.Context, find *store.FindDocumentEmbedding) ([]*store.DocumentEmbedding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.DocumentEmbedding{}
	for _, embedding := range d.embeddings {
		if find.DocumentID != nil && embedding.DocumentID != *find.DocumentID {
			continue
		}
		if find.Model != nil && embedding.Model != *find.Model {
			continue
		}
		list = append(list, embedding)
	}
	return list, nil
}

func (d *fakeDriver) ListDocumentIDsWithoutEmbedding(_ context.Context, _ string, limit int) ([]int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := []int32{}
	for id := range d.documents {
		if _, ok := d.embeddings[id]; !ok {
			ids = append(ids, id)
		}
		if len(ids) >= limit {
			break
		}
	}
	return ids, nil
}

func (d *fakeDriver) DeleteDocumentEmbedding(_ context.Context, documentID int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.embeddings, documentID)
	return nil
}

func (d *fakeDriver) ReplaceSimilarityRecords(_ context.Context, sourceDocumentID int32, records []*store.SimilarityRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := []*store.SimilarityRecord{}
	for _, record := range d.records {
		if record.SourceDocumentID != sourceDocumentID {
			kept = append(kept, record)
		}
	}
	for _, record := range records {
		record.ID = d.id()
		record.SourceDocumentID = sourceDocumentID
		kept = append(kept, record)
	}
	d.records = kept
	return nil
}

func (d *fakeDriver) ListSimilarityRecords(_ context.Context, find *store.FindSimilarityRecord) ([]*store.SimilarityRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
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
	d.mu.Lock()
	defer d.mu.Unlock()
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
	d.mu.Lock()
	defer d.mu.Unlock()
	create.ID = d.id()
	d.jobs[create.ID] = create
	return create, nil
}

func (d *fakeDriver) ListSimilarityJobs(_ context.Context, find *store.FindSimilarityJob) ([]*store.SimilarityJob, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.SimilarityJob{}
	for _, job := range d.jobs {
		if find.ID != nil && job.ID != *find.ID {
			continue
		}
		if find.UID != nil && job.UID != *find.UID {
			continue
		}
		if find.DocumentID != nil && job.DocumentID != *find.DocumentID {
			continue
		}
		list = append(list, job)
	}
	return list, nil
}

func (d *fakeDriver) UpdateSimilarityJob(_ context.Context, update *store.UpdateSimilarityJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failProgressUpdate && update.Progress != nil && *update.Progress == 50 {
		return errors.New("storage unavailable")
	}
	job, ok := d.jobs[update.ID]
	if !ok {
		return nil
	}
	if update.Status != nil {
		job.Status = *update.Status
	}
	if update.Progress != nil {
		job.Progress = *update.Progress
	}
	if update.CompletedTs != nil {
		job.CompletedTs = update.CompletedTs
	}
	if update.ErrorMessage != nil {
		job.ErrorMessage = *update.ErrorMessage
	}
	return nil
}

// fakeEmbedder counts calls and returns a fixed vector.
type fakeEmbedder struct {
	mu     sync.Mutex
	calls  int
	vector []float32
	err    error
}

func (e *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}

func (e *fakeEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// fakeExtractor counts calls and fails for every file.
type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	text  string
}

func (e *fakeExtractor) ExtractFileText(_ context.Context, _ *store.File) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return e.text, nil
}

func (e *fakeExtractor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func newTestService(driver *fakeDriver, embedder ai.EmbeddingService, extractor Extractor) (*Service, *store.Store) {
	st := store.New(driver, &profile.Profile{Driver: "sqlite"})
	cfg := &ai.Config{
		Embedding:  ai.EmbeddingConfig{Model: "test-embedding"},
		Similarity: ai.DefaultSimilarityConfig(),
	}
	return NewService(st, embedder, extractor, cfg), st
}

func addDocument(t *testing.T, driver *fakeDriver, title string, visibility store.Visibility, files ...*store.File) *store.Document {
	t.Helper()
	doc, err := driver.CreateDocument(context.Background(), &store.Document{
		UID:              title,
		Title:            title,
		Visibility:       visibility,
		ModerationStatus: store.ModerationApproved,
	})
	require.NoError(t, err)
	for _, file := range files {
		file.DocumentID = doc.ID
		_, err := driver.CreateFile(context.Background(), file)
		require.NoError(t, err)
	}
	return doc
}

func TestDetectNotFound(t *testing.T) {
	driver := newFakeDriver()
	svc, _ := newTestService(driver, nil, nil)

	_, err := svc.DetectSimilarDocuments(context.Background(), 99)
	require.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDetectExactHashShortCircuit(t *testing.T) {
	driver := newFakeDriver()
	extractor := &fakeExtractor{text: "some long extracted text"}
	svc, _ := newTestService(driver, nil, extractor)

	source := addDocument(t, driver, "source", store.Private,
		&store.File{Name: "a.pdf", ContentHash: "hash-1"})
	twin := addDocument(t, driver, "twin", store.Public,
		&store.File{Name: "b.pdf", ContentHash: "hash-1"})
	addDocument(t, driver, "other", store.Public,
		&store.File{Name: "c.pdf", ContentHash: "hash-2", ExtractedText: "unrelated text"})

	result, err := svc.DetectSimilarDocuments(context.Background(), source.ID)
	require.NoError(t, err)
	require.True(t, result.HasSimilar)
	require.Equal(t, 1, result.Count)
	require.Equal(t, twin.ID, result.Records[0].TargetDocumentID)
	require.Equal(t, 1.0, result.Records[0].Score)
	require.Equal(t, "hash", result.Records[0].Type)

	// The short circuit must skip text comparison entirely; the source file
	// has no stored text, so any extraction attempt would hit the extractor.
	require.Equal(t, 0, extractor.callCount())
}

func TestDetectTextMatch(t *testing.T) {
	driver := newFakeDriver()
	svc, _ := newTestService(driver, nil, nil)

	shared := "the quick brown fox jumps over the lazy dog again and again"
	source := addDocument(t, driver, "source", store.Private,
		&store.File{Name: "a.txt", ContentHash: "hash-a", ExtractedText: shared})
	match := addDocument(t, driver, "match", store.Public,
		&store.File{Name: "b.txt", ContentHash: "hash-b", ExtractedText: shared})
	addDocument(t, driver, "unrelated", store.Public,
		&store.File{Name: "c.txt", ContentHash: "hash-c", ExtractedText: "completely different words about database indexing strategies"})

	result, err := svc.DetectSimilarDocuments(context.Background(), source.ID)
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	require.Equal(t, match.ID, result.Records[0].TargetDocumentID)
	require.Equal(t, "text", result.Records[0].Type)
	require.GreaterOrEqual(t, result.Records[0].Score, 0.7)
}

func TestDetectPrivateCandidatesExcluded(t *testing.T) {
	driver := newFakeDriver()
	svc, _ := newTestService(driver, nil, nil)

	shared := "identical content in both documents word for word"
	source := addDocument(t, driver, "source", store.Private,
		&store.File{Name: "a.txt", ContentHash: "hash-a", ExtractedText: shared})
	addDocument(t, driver, "hidden", store.Private,
		&store.File{Name: "b.txt", ContentHash: "hash-b", ExtractedText: shared})

	result, err := svc.DetectSimilarDocuments(context.Background(), source.ID)
	require.NoError(t, err)
	require.False(t, result.HasSimilar)
	require.Empty(t, result.Records)
}

func TestDetectEmbeddingMatch(t *testing.T) {
	driver := newFakeDriver()
	svc, st := newTestService(driver, nil, nil)
	ctx := context.Background()

	source := addDocument(t, driver, "source", store.Private,
		&store.File{Name: "a.txt", ContentHash: "hash-a", ExtractedText: "alpha beta gamma"})
	match := addDocument(t, driver, "match", store.Public,
		&store.File{Name: "b.txt", ContentHash: "hash-b", ExtractedText: "delta epsilon zeta"})

	for _, id := range []int32{source.ID, match.ID} {
		_, err := st.UpsertDocumentEmbedding(ctx, &store.DocumentEmbedding{
			DocumentID: id,
			Embedding:  []float32{1, 0, 0},
			Model:      "test-embedding",
		})
		require.NoError(t, err)
	}

	result, err := svc.DetectSimilarDocuments(ctx, source.ID)
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	require.Equal(t, match.ID, result.Records[0].TargetDocumentID)
	require.Equal(t, "content", result.Records[0].Type)
	// The reported score is max(combined, embedding); identical vectors give
	// embedding similarity 1.0.
	require.InDelta(t, 1.0, result.Records[0].Score, 1e-9)
}

func TestDetectIdempotentRerun(t *testing.T) {
	driver := newFakeDriver()
	svc, st := newTestService(driver, nil, nil)
	ctx := context.Background()

	shared := "the same report uploaded twice by different users"
	source := addDocument(t, driver, "source", store.Private,
		&store.File{Name: "a.txt", ContentHash: "hash-a", ExtractedText: shared})
	addDocument(t, driver, "match", store.Public,
		&store.File{Name: "b.txt", ContentHash: "hash-b", ExtractedText: shared})

	for i := 0; i < 2; i++ {
		_, err := svc.DetectSimilarDocuments(ctx, source.ID)
		require.NoError(t, err)
	}

	records, err := st.ListSimilarityRecords(ctx, &store.FindSimilarityRecord{SourceDocumentID: &source.ID})
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestDetectZeroCandidatesClearsPriorRecords(t *testing.T) {
	driver := newFakeDriver()
	svc, st := newTestService(driver, nil, nil)
	ctx := context.Background()

	source := addDocument(t, driver, "source", store.Private,
		&store.File{Name: "a.txt", ContentHash: "hash-a", ExtractedText: "lonely document"})

	// Stale record from a previous run against a since-removed candidate.
	require.NoError(t, st.ReplaceSimilarityRecords(ctx, source.ID, []*store.SimilarityRecord{
		{TargetDocumentID: 999, Score: 0.9, Type: "text"},
	}))

	result, err := svc.DetectSimilarDocuments(ctx, source.ID)
	require.NoError(t, err)
	require.False(t, result.HasSimilar)

	records, err := st.ListSimilarityRecords(ctx, &store.FindSimilarityRecord{SourceDocumentID: &source.ID})
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestGetOrCreateEmbedding(t *testing.T) {
	driver := newFakeDriver()
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	svc, _ := newTestService(driver, embedder, nil)
	ctx := context.Background()

	doc := addDocument(t, driver, "doc", store.Private,
		&store.File{Name: "a.txt", ExtractedText: "document content"})

	vector, err := svc.GetOrCreateEmbedding(ctx, doc.ID, false)
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	require.Equal(t, 1, embedder.callCount())

	// Second call hits the persisted vector, not the provider.
	_, err = svc.GetOrCreateEmbedding(ctx, doc.ID, false)
	require.NoError(t, err)
	require.Equal(t, 1, embedder.callCount())

	// Force regenerates.
	_, err = svc.GetOrCreateEmbedding(ctx, doc.ID, true)
	require.NoError(t, err)
	require.Equal(t, 2, embedder.callCount())
}

func TestGetOrCreateEmbeddingNoContent(t *testing.T) {
	driver := newFakeDriver()
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	svc, _ := newTestService(driver, embedder, nil)

	doc, err := driver.CreateDocument(context.Background(), &store.Document{UID: "empty"})
	require.NoError(t, err)

	_, err = svc.GetOrCreateEmbedding(context.Background(), doc.ID, false)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, 0, embedder.callCount())
}

func TestRunEmbeddingAndDetectionJob(t *testing.T) {
	driver := newFakeDriver()
	embedder := &fakeEmbedder{vector: []float32{0.5, 0.5}}
	svc, st := newTestService(driver, embedder, nil)
	ctx := context.Background()

	doc := addDocument(t, driver, "doc", store.Private,
		&store.File{Name: "a.txt", ContentHash: "hash-a", ExtractedText: "job content"})
	job, err := st.CreateSimilarityJob(ctx, &store.SimilarityJob{
		UID:        "job-1",
		DocumentID: doc.ID,
		Status:     store.JobPending,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunEmbeddingAndDetectionJob(ctx, job.ID, doc.ID))

	updated, err := st.GetSimilarityJob(ctx, &store.FindSimilarityJob{ID: &job.ID})
	require.NoError(t, err)
	require.Equal(t, store.JobCompleted, updated.Status)
	require.Equal(t, int32(100), updated.Progress)
	require.NotNil(t, updated.CompletedTs)
}

func TestRunEmbeddingAndDetectionJobFailure(t *testing.T) {
	driver := newFakeDriver()
	svc, st := newTestService(driver, nil, nil)
	ctx := context.Background()

	job, err := st.CreateSimilarityJob(ctx, &store.SimilarityJob{
		UID:        "job-2",
		DocumentID: 424242,
		Status:     store.JobPending,
	})
	require.NoError(t, err)

	err = svc.RunEmbeddingAndDetectionJob(ctx, job.ID, 424242)
	require.ErrorIs(t, err, ErrDocumentNotFound)

	updated, getErr := st.GetSimilarityJob(ctx, &store.FindSimilarityJob{ID: &job.ID})
	require.NoError(t, getErr)
	require.Equal(t, store.JobFailed, updated.Status)
	require.NotEmpty(t, updated.ErrorMessage)
}

func TestRunEmbeddingAndDetectionJobLifecycleUpdateFailure(t *testing.T) {
	driver := newFakeDriver()
	driver.failProgressUpdate = true
	svc, st := newTestService(driver, nil, nil)
	ctx := context.Background()

	doc := addDocument(t, driver, "doc", store.Private,
		&store.File{Name: "a.txt", ContentHash: "hash-a", ExtractedText: "job content"})
	job, err := st.CreateSimilarityJob(ctx, &store.SimilarityJob{
		UID:        "job-3",
		DocumentID: doc.ID,
		Status:     store.JobPending,
	})
	require.NoError(t, err)

	err = svc.RunEmbeddingAndDetectionJob(ctx, job.ID, doc.ID)
	require.Error(t, err)

	// The row must not be left stuck in processing: the failed checkpoint
	// write marks the job failed with the captured message.
	updated, getErr := st.GetSimilarityJob(ctx, &store.FindSimilarityJob{ID: &job.ID})
	require.NoError(t, getErr)
	require.Equal(t, store.JobFailed, updated.Status)
	require.Contains(t, updated.ErrorMessage, "progress")
}
