package slot

import "sync"

// MemorySlot is an in-process slot used in tests and when persistence
// is disabled. Contents are lost when the process exits.
type MemorySlot struct {
	name string

	mu      sync.Mutex
	data    []byte
	written bool

	// FailWrites makes WriteAll return an error; tests use it to
	// exercise best-effort persistence.
	FailWrites error
}

// NewMemorySlot creates an in-memory slot.
func NewMemorySlot(name string) *MemorySlot {
	if name == "" {
		name = DefaultName
	}
	return &MemorySlot{name: name}
}

func (s *MemorySlot) Name() string { return s.name }

func (s *MemorySlot) ReadAll() ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.written {
		return nil, false, nil
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, true, nil
}

func (s *MemorySlot) WriteAll(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.data = make([]byte, len(data))
	copy(s.data, data)
	s.written = true
	return nil
}

func (s *MemorySlot) Close() error { return nil }
