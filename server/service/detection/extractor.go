package detection

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/openslate/docshare/plugin/textextract"
	"github.com/openslate/docshare/store"
)

// LocalFileExtractor extracts text from files stored on the local disk,
// delegating binary formats to a Tika server.
type LocalFileExtractor struct {
	root   string
	client *textextract.Client
}

// NewLocalFileExtractor creates an extractor rooted at the given storage
// directory.
func NewLocalFileExtractor(root string, client *textextract.Client) *LocalFileExtractor {
	return &LocalFileExtractor{
		root:   root,
		client: client,
	}
}

// ExtractFileText reads the file's bytes from local storage and extracts
// plain text from them.
func (e *LocalFileExtractor) ExtractFileText(ctx context.Context, file *store.File) (string, error) {
	if file.StorageKey == "" {
		return "", errors.New("file has no storage key")
	}

	data, err := os.ReadFile(filepath.Join(e.root, filepath.Clean(file.StorageKey)))
	if err != nil {
		return "", errors.Wrap(err, "failed to read stored file")
	}

	contentType := file.MimeType
	if contentType == "" {
		contentType = textextract.DetectContentType(file.Name, data)
	}

	return e.client.ExtractText(ctx, data, contentType)
}
