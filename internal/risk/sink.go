package risk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoAssessment is returned when no assessment has been persisted yet
var ErrNoAssessment = errors.New("no assessment available")

// Sink persists the serialised bundle of each assessment
type Sink interface {
	Name() string
	Save(ctx context.Context, payload []byte) error
}

// LatestReader returns the most recently persisted bundle
type LatestReader interface {
	Latest(ctx context.Context) ([]byte, error)
}

// FileSink keeps the latest assessment in a single JSON file. Each save
// overwrites the previous one.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink creates a sink writing to path
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Name implements Sink
func (s *FileSink) Name() string { return "file" }

// Path returns the file the sink writes to
func (s *FileSink) Path() string { return s.path }

// Save writes payload through a temporary file so readers never see a
// partial assessment
func (s *FileSink) Save(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".assessment-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write assessment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write assessment: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// Latest implements LatestReader
func (s *FileSink) Latest(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoAssessment
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return data, nil
}
