package slot

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSlot stores the slot contents in a single file under a data
// directory, one file per slot name.
type FileSlot struct {
	name string
	path string
}

// NewFileSlot creates a file-backed slot rooted at dir.
func NewFileSlot(dir, name string) (*FileSlot, error) {
	if name == "" {
		name = DefaultName
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create slot dir: %w", err)
	}
	return &FileSlot{
		name: name,
		path: filepath.Join(dir, name+".json"),
	}, nil
}

func (s *FileSlot) Name() string { return s.name }

func (s *FileSlot) ReadAll() ([]byte, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read slot %q: %w", s.name, err)
	}
	return data, true, nil
}

func (s *FileSlot) WriteAll(data []byte) error {
	// Write to a temp file then rename so a crash mid-write never
	// leaves a torn slot behind.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write slot %q: %w", s.name, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit slot %q: %w", s.name, err)
	}
	return nil
}

func (s *FileSlot) Close() error { return nil }
