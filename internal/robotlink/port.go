package robotlink

import "io"

// Porter is the minimal interface the link needs from a serial port. The
// abstraction keeps the link testable without robot hardware.
type Porter interface {
	io.ReadWriter
	io.Closer
}
