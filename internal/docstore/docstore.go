// Package docstore persists whole documents at logical paths, with an
// optional version token so that writers can detect concurrent updates.
package docstore

import (
	"context"
	"errors"
	"strconv"
)

var (
	// ErrNotFound is returned by Load when nothing is stored at the path.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrVersionConflict is returned by Save when the stored version is not
	// the one the caller read.
	ErrVersionConflict = errors.New("docstore: version conflict")
)

// Document is a stored body and the version token it was read at.
type Document struct {
	Body    []byte
	Version string
}

// Store is implemented by every ledger backend.
//
// Save with expectedVersion "" creates the document and fails with
// ErrVersionConflict if it already exists. Otherwise it replaces the
// document only if it is still at expectedVersion. Stores that report
// Conditional() == false cannot enforce either rule and overwrite blindly.
type Store interface {
	Load(ctx context.Context, path string) (Document, error)
	Save(ctx context.Context, path string, body []byte, expectedVersion string) (string, error)
	Conditional() bool
}

func formatVersion(v int64) string { return strconv.FormatInt(v, 10) }

func parseVersion(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.New("docstore: malformed version token " + strconv.Quote(s))
	}
	return v, nil
}
