// Package document stores the feed document on disk. Writes replace the file
// atomically and runs are serialized with an advisory lock file.
package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
)

const lockRetryDelay = 100 * time.Millisecond

// ErrLocked is returned when another process holds the document lock.
var ErrLocked = errors.New("document is locked by another run")

// File is a feed document at a fixed path.
type File struct {
	path string
	perm os.FileMode
}

// NewFile returns a store for the document at path.
func NewFile(path string) *File {
	return &File{path: path, perm: 0o644}
}

// Path returns the document path.
func (f *File) Path() string { return f.path }

// Read returns the whole document.
func (f *File) Read(_ context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}

// Write replaces the document. Readers see either the old or the new
// content, never a partial write.
func (f *File) Write(_ context.Context, doc string) error {
	if err := renameio.WriteFile(f.path, []byte(doc), f.perm); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// Lock takes the process-level lock of the document, waiting until ctx is
// done. The returned function releases it.
func (f *File) Lock(ctx context.Context) (func() error, error) {
	fl := flock.New(f.path + ".lock")
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrLocked, err)
		}
		return nil, fmt.Errorf("lock document: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return fl.Unlock, nil
}

// Hash returns the hex SHA-256 of doc.
func Hash(doc string) string {
	sum := sha256.Sum256([]byte(doc))
	return hex.EncodeToString(sum[:])
}
