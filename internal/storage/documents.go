// Package storage keeps uploaded identity documents on local disk,
// encrypted at rest with AES-256-GCM under a 32-byte master key. Files are
// named by a generated UUID plus the original extension; the client's
// filename is never used.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrFileMissing = errors.New("document file not found")
	errBadName     = errors.New("invalid document name")
)

type DocumentStore struct {
	dir    string
	key    []byte
	logger *zap.Logger
}

// NewDocumentStore creates the upload directory if needed and returns a
// store bound to it.
func NewDocumentStore(dir string, key []byte, logger *zap.Logger) (*DocumentStore, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKeySize
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DocumentStore{dir: dir, key: key, logger: logger}, nil
}

// Save encrypts data and writes it under a generated name, keeping only the
// lowercased extension of the original filename. The stored name is returned.
func (s *DocumentStore) Save(data []byte, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	name := uuid.New().String() + ext

	sealed, err := encrypt(data, s.key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt document: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, name), sealed, 0o600); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	s.logger.Debug("Stored document", zap.String("name", name), zap.Int("size", len(data)))
	return name, nil
}

// Open reads and decrypts a stored document. A missing file is reported as
// ErrFileMissing so callers can distinguish it from a missing record.
func (s *DocumentStore) Open(name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	sealed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileMissing
		}
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	data, err := decrypt(sealed, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt document %s: %w", name, err)
	}
	return data, nil
}

// Remove deletes a stored document. Removing an already-absent file is not
// an error.
func (s *DocumentStore) Remove(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// path validates the stored name and resolves it inside the upload dir.
// Names carrying path separators or traversal are rejected.
func (s *DocumentStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", errBadName
	}
	return filepath.Join(s.dir, name), nil
}
