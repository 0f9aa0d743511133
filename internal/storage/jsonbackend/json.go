package jsonbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/FranksOps/quill/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	path string
}

// New creates a storage.Backend that keeps a single Research Record as an
// indented JSON document at filePath.
func New(filePath string) storage.Backend {
	return &jsonBackend{path: filePath}
}

// Save overwrites the file with rec. Nil result and source slices are written
// as empty arrays so consumers always find both keys.
func (b *jsonBackend) Save(ctx context.Context, rec *storage.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec == nil {
		return errors.New("nil record")
	}

	out := *rec
	if out.Results == nil {
		out.Results = []storage.Result{}
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	if err := storage.WriteFile(b.path, append(data, '\n')); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

// Load reads the record back and enforces the input contract: the file must
// exist, hold a JSON object, carry no "error" key and carry a "results" array.
func (b *jsonBackend) Load(ctx context.Context) (*storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, b.path)
		}
		return nil, fmt.Errorf("read record: %w", err)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidJSON, err)
	}

	if raw, ok := keys["error"]; ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrRecordFailed, errorText(raw))
	}
	raw, ok := keys["results"]
	if !ok {
		return nil, storage.ErrMissingResults
	}
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return nil, storage.ErrMissingResults
	}
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: results is not an array", storage.ErrInvalidJSON)
	}

	var rec storage.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidJSON, err)
	}
	return &rec, nil
}

// errorText renders the value of an "error" key whatever its JSON type.
func errorText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
