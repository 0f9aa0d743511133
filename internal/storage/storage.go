package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Depth controls how many query variations Stage 1 searches.
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthAdvanced Depth = "advanced"
)

// ParseDepth validates a depth string.
func ParseDepth(s string) (Depth, error) {
	switch d := Depth(strings.ToLower(strings.TrimSpace(s))); d {
	case DepthBasic, DepthAdvanced:
		return d, nil
	default:
		return "", fmt.Errorf("unknown search depth %q", s)
	}
}

// Result is a single normalised search hit inside a Record.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// Record is the Research Record exchanged between the research and
// write-article stages. It is written once and never mutated afterwards.
type Record struct {
	Query       string   `json:"query"`
	Timestamp   string   `json:"timestamp"`
	SearchDepth Depth    `json:"search_depth"`
	Results     []Result `json:"results"`
	Sources     []string `json:"sources"`
	Summary     string   `json:"summary"`
	Error       string   `json:"error,omitempty"`
}

// Failed reports whether the record carries a failure.
func (r *Record) Failed() bool {
	return r.Error != ""
}

// Input contract violations reported when loading a record.
var (
	ErrNotFound       = errors.New("input file not found")
	ErrInvalidJSON    = errors.New("invalid JSON in input file")
	ErrRecordFailed   = errors.New("research data contains error")
	ErrMissingResults = errors.New("research data missing 'results' field")
)

// Backend persists and loads Research Records.
type Backend interface {
	Save(ctx context.Context, rec *Record) error
	Load(ctx context.Context) (*Record, error)
}

// WriteFile writes data to path, creating parent directories on demand and
// replacing any previous file through a rename so readers never observe a
// partially written artifact.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
