// Package storage holds the document stores that keep company datasets and run summaries.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	ErrNotFound = errors.New("document not found")

	// ErrPreconditionFailed means the document changed (or appeared) since it was read.
	ErrPreconditionFailed = errors.New("document was modified concurrently")
)

// Document identifies one stored file. Version is opaque and is passed back
// to Update as the expected current version.
type Document struct {
	ID      string
	Name    string
	Folder  string
	Version string
}

// DocumentStore is a folder/name addressed file store with conditional writes.
type DocumentStore interface {
	// Find looks up a document by exact name within folder.
	Find(ctx context.Context, folder, name string) (*Document, error)
	Download(ctx context.Context, id string) ([]byte, error)
	// Create fails with ErrPreconditionFailed if the name is already taken.
	Create(ctx context.Context, folder, name string, data []byte) (*Document, error)
	// Update replaces the contents only if the stored version still equals ifMatch.
	// An empty ifMatch writes unconditionally.
	Update(ctx context.Context, id string, data []byte, ifMatch string) (*Document, error)
}

// ObjectKey joins a folder and a file name into a store key.
func ObjectKey(folder, name string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

func splitKey(key string) (folder, name string) {
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return "", key
	}
	return key[:i], key[i+1:]
}
