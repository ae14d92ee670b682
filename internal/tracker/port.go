package tracker

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Porter is the minimal interface the tracker needs from a sensor link.
// The abstraction enables unit testing without real hardware.
type Porter interface {
	io.ReadCloser
}

// PortMode defines the serial link configuration.
type PortMode struct {
	BaudRate int
	DataBits int
}

// DefaultPortMode returns the default mode for the displacement sensor.
func DefaultPortMode() *PortMode {
	return &PortMode{
		BaudRate: 115200,
		DataBits: 8,
	}
}

// OpenSerialPort opens a real serial port at path.
func OpenSerialPort(path string, mode *PortMode) (Porter, error) {
	if mode == nil {
		mode = DefaultPortMode()
	}
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: mode.BaudRate,
		DataBits: mode.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	return port, nil
}
