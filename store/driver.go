package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Document model related methods.
	CreateDocument(ctx context.Context, create *Document) (*Document, error)
	ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error)
	ListDocumentIDs(ctx context.Context, find *FindDocument) ([]int32, error)
	FindDocumentsByFileHash(ctx context.Context, hashes []string, excludeID int32) ([]*Document, error)

	// File model related methods.
	CreateFile(ctx context.Context, create *File) (*File, error)
	ListFiles(ctx context.Context, find *FindFile) ([]*File, error)

	// DocumentEmbedding model related methods.
	UpsertDocumentEmbedding(ctx context.Context, embedding *DocumentEmbedding) (*DocumentEmbedding, error)
	ListDocumentEmbeddings(ctx context.Context, find *FindDocumentEmbedding) ([]*DocumentEmbedding, error)
	ListDocumentIDsWithoutEmbedding(ctx context.Context, model string, limit int) ([]int32, error)
	DeleteDocumentEmbedding(ctx context.Context, documentID int32) error

	// SimilarityRecord model related methods.
	ReplaceSimilarityRecords(ctx context.Context, sourceDocumentID int32, records []*SimilarityRecord) error
	ListSimilarityRecords(ctx context.Context, find *FindSimilarityRecord) ([]*SimilarityRecord, error)
	UpdateSimilarityRecord(ctx context.Context, update *UpdateSimilarityRecord) error

	// SimilarityJob model related methods.
	CreateSimilarityJob(ctx context.Context, create *SimilarityJob) (*SimilarityJob, error)
	ListSimilarityJobs(ctx context.Context, find *FindSimilarityJob) ([]*SimilarityJob, error)
	UpdateSimilarityJob(ctx context.Context, update *UpdateSimilarityJob) error
}
