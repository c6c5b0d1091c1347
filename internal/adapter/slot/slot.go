// Package slot provides the durable persistence capability consumed by
// the history store: a single named slot of raw bytes with synchronous
// read/write. Write failures are best-effort from the engine's point of
// view — tracking keeps working when storage is unavailable.
package slot

// DefaultName is the slot the history store persists into.
const DefaultName = "locationHistory"

// Slot is a named byte slot.
type Slot interface {
	// ReadAll returns the stored bytes. ok is false when the slot has
	// never been written (absent is not an error).
	ReadAll() (data []byte, ok bool, err error)
	// WriteAll replaces the slot contents.
	WriteAll(data []byte) error
	// Name returns the slot identifier.
	Name() string
	// Close releases underlying resources. Idempotent.
	Close() error
}
