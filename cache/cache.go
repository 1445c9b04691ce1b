package cache

import (
	"context"
	"errors"
	"strings"
)

// KeyLength is the length of a derived cache key (hex-encoded MD5).
const KeyLength = 32

// DocumentExt is the suffix of every cache document name.
const DocumentExt = ".json"

// Sentinel errors for cache operations.
var (
	// ErrInvalidKey indicates a key that is not 32 lowercase hex characters.
	ErrInvalidKey = errors.New("cache: key is invalid")

	// ErrNotFound is returned by a Backend when a document does not exist.
	ErrNotFound = errors.New("cache: document not found")

	// ErrPersist wraps every failure to write or delete documents.
	ErrPersist = errors.New("cache: persist failed")

	// ErrUnknownBackend indicates a backend name outside the supported set.
	ErrUnknownBackend = errors.New("cache: unknown backend")
)

// Backend stores named JSON documents.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Read returns ErrNotFound (possibly wrapped) when name does not exist.
// - Write publishes atomically: readers see the old or the new document, never a partial one.
// - Delete is idempotent.
// - Names lists document names ending in DocumentExt, in no particular order.
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
	Names(ctx context.Context) ([]string, error)

	// Location describes where documents live, for diagnostics.
	Location() string
}

// ValidateKey checks that key looks like a derived cache key. Every document
// name built from a key goes through it.
func ValidateKey(key string) error {
	if len(key) != KeyLength {
		return ErrInvalidKey
	}
	for _, r := range key {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return ErrInvalidKey
		}
	}
	return nil
}

// DocumentName returns the document name for key.
func DocumentName(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key + DocumentExt, nil
}

func isDocumentName(name string) bool {
	return strings.HasSuffix(name, DocumentExt) && !strings.HasPrefix(name, ".")
}
