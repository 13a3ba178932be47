package robotlink

import (
	"go.bug.st/serial"
)

// NewRealLink opens the serial port at the given path with the provided
// options and wraps it in a Link.
func NewRealLink(path string, opts PortOptions) (*Link[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return NewLink[serial.Port](port), nil
}
