package clipboard

import (
	"sync"

	"github.com/atotto/clipboard"
)

// Writer places text on a clipboard.
type Writer interface {
	WriteText(text string) error
}

// System writes to the OS clipboard.
type System struct{}

// WriteText copies text using the platform clipboard utility.
func (System) WriteText(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

// Memory keeps the last written text. Used when no system clipboard exists.
// It is safe for concurrent use.
type Memory struct {
	mu   sync.Mutex
	last string
}

// WriteText records text.
func (m *Memory) WriteText(text string) error {
	m.mu.Lock()
	m.last = text
	m.mu.Unlock()
	return nil
}

// Text returns the last written text.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
