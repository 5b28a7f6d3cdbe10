package store

import "context"

// Visibility is the visibility of a document.
type Visibility string

const (
	Public  Visibility = "PUBLIC"
	Private Visibility = "PRIVATE"
)

// ModerationStatus is the moderation state of a document.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "PENDING"
	ModerationApproved ModerationStatus = "APPROVED"
	ModerationRejected ModerationStatus = "REJECTED"
)

// Document represents a shared document with its metadata.
type Document struct {
	ID               int32
	UID              string
	CreatorID        int32
	Title            string
	Description      string
	Tags             []string
	Summary          string // AI-derived summary, may be empty
	Visibility       Visibility
	ModerationStatus ModerationStatus
	CreatedTs        int64
	UpdatedTs        int64

	// Files is populated by GetDocumentWithFiles, not by ListDocuments.
	Files []*File
}

// File represents one uploaded file attached to a document.
type File struct {
	ID         int32
	DocumentID int32
	Name       string
	MimeType   string
	StorageKey string
	// ContentHash is the strong hash of the raw bytes; empty when content
	// ingestion failed.
	ContentHash string
	// ExtractedText is the text extracted at ingestion time, may be empty.
	ExtractedText string
	SizeBytes     int64
	CreatedTs     int64
}

// FindDocument is the find condition for documents.
type FindDocument struct {
	ID                      *int32
	UID                     *string
	IDs                     []int32
	CreatorID               *int32
	ExcludeID               *int32
	Visibility              *Visibility
	ExcludeModerationStatus *ModerationStatus
	Limit                   *int
}

// FindFile is the find condition for files.
type FindFile struct {
	ID          *int32
	DocumentID  *int32
	DocumentIDs []int32
}

func (s *Store) CreateDocument(ctx context.Context, create *Document) (*Document, error) {
	return s.driver.CreateDocument(ctx, create)
}

func (s *Store) ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error) {
	return s.driver.ListDocuments(ctx, find)
}

// GetDocument gets a single document, or nil when absent.
func (s *Store) GetDocument(ctx context.Context, find *FindDocument) (*Document, error) {
	list, err := s.driver.ListDocuments(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// GetDocumentWithFiles gets a document together with its files.
func (s *Store) GetDocumentWithFiles(ctx context.Context, find *FindDocument) (*Document, error) {
	document, err := s.GetDocument(ctx, find)
	if err != nil || document == nil {
		return document, err
	}

	files, err := s.driver.ListFiles(ctx, &FindFile{DocumentID: &document.ID})
	if err != nil {
		return nil, err
	}
	document.Files = files
	return document, nil
}

// ListDocumentIDs lists only the ids of matching documents. Used to fetch
// bounded candidate pools without materializing rows.
func (s *Store) ListDocumentIDs(ctx context.Context, find *FindDocument) ([]int32, error) {
	return s.driver.ListDocumentIDs(ctx, find)
}

// FindDocumentsByFileHash returns documents (other than excludeID) owning at
// least one file whose content hash is in hashes. Only public, non-rejected
// documents are considered.
func (s *Store) FindDocumentsByFileHash(ctx context.Context, hashes []string, excludeID int32) ([]*Document, error) {
	return s.driver.FindDocumentsByFileHash(ctx, hashes, excludeID)
}

func (s *Store) CreateFile(ctx context.Context, create *File) (*File, error) {
	return s.driver.CreateFile(ctx, create)
}

func (s *Store) ListFiles(ctx context.Context, find *FindFile) ([]*File, error) {
	return s.driver.ListFiles(ctx, find)
}
