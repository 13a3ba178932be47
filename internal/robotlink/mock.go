package robotlink

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// MockPort implements Porter for dev mode and tests. Writes are captured in
// a buffer; reads drain whatever test code queued with QueueResponse.
type MockPort struct {
	mu sync.Mutex

	reads  *bytes.Buffer
	writes *bytes.Buffer

	closed bool
}

func NewMockPort() *MockPort {
	return &MockPort{
		reads:  bytes.NewBuffer(nil),
		writes: bytes.NewBuffer(nil),
	}
}

// QueueResponse appends a line the next Read calls will return, simulating
// controller output.
func (m *MockPort) QueueResponse(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads.WriteString(line + "\n")
}

// Written returns everything written to the port so far.
func (m *MockPort) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes.String()
}

func (m *MockPort) Read(p []byte) (int, error) {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return 0, io.EOF
		}
		if m.reads.Len() > 0 {
			n, err := m.reads.Read(p)
			m.mu.Unlock()
			return n, err
		}
		m.mu.Unlock()
		// Poll until data arrives or the port closes, mimicking a serial
		// port with no pending bytes.
		time.Sleep(5 * time.Millisecond)
	}
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.ErrClosedPipe
	}
	return m.writes.Write(p)
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// NewMockLink creates a Link backed by an in-memory port.
func NewMockLink() (*Link[*MockPort], *MockPort) {
	port := NewMockPort()
	return NewLink(port), port
}
