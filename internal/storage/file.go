package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every record in one JSON object on disk. Writes rewrite
// the whole file through a temporary sibling.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.loadRecords()
	if err != nil {
		return nil, err
	}
	raw, ok := records[name]
	if !ok {
		return nil, ErrNotFound
	}
	return decodeRecord(raw), nil
}

func (s *FileStore) Set(ctx context.Context, name string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.loadRecords()
	if err != nil {
		return err
	}
	records[name] = encodeRecord(value)
	return s.writeRecords(records)
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.loadRecords()
	if err != nil {
		return err
	}
	if _, ok := records[name]; !ok {
		return nil
	}
	delete(records, name)
	return s.writeRecords(records)
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) loadRecords() (map[string]fileRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]fileRecord{}, nil
		}
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]fileRecord{}, nil
	}
	records := map[string]fileRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *FileStore) writeRecords(records map[string]fileRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// fileRecord keeps JSON values inline so the file stays readable and
// stores anything else as text.
type fileRecord struct {
	JSON json.RawMessage `json:"json,omitempty"`
	Text *string         `json:"text,omitempty"`
}

func encodeRecord(value []byte) fileRecord {
	if len(value) > 0 && json.Valid(value) {
		return fileRecord{JSON: append(json.RawMessage(nil), value...)}
	}
	text := string(value)
	return fileRecord{Text: &text}
}

func decodeRecord(record fileRecord) []byte {
	if record.Text != nil {
		return []byte(*record.Text)
	}
	return append([]byte(nil), record.JSON...)
}
