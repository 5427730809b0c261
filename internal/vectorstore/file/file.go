// Package file stores the class-embedding table as a JSON document.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"bczsl/internal/artifact"
	"bczsl/internal/domain"
	"bczsl/internal/embedding"
)

type Storage struct {
	path string
}

func NewStorage(path string) *Storage { return &Storage{path: path} }

// Path returns the backing file.
func (s *Storage) Path() string { return s.path }

func (s *Storage) Save(_ context.Context, table *embedding.Table) error {
	if table.Len() == 0 {
		return domain.ErrEmptyTable
	}
	data, err := table.MarshalJSON()
	if err != nil {
		return fmt.Errorf("file store: encode: %w", err)
	}
	return artifact.WriteFile(s.path, append(data, '\n'))
}

func (s *Storage) Load(_ context.Context) (*embedding.Table, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("class embeddings %s: %w", s.path, domain.ErrMissingArtifact)
	}
	if err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	table, err := embedding.DecodeTable(data)
	if err != nil {
		return nil, fmt.Errorf("file store: decode %s: %w", s.path, err)
	}
	return table, nil
}
