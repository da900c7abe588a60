package hub

import (
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// OpenSerial opens the hub link port at 8N1. The per-call read timeout is
// kept short; the driver owns the real response deadline.
func OpenSerial(portName string, baudRate int) (PortInterface, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", portName)
	}
	if err := port.SetReadTimeout(5 * time.Millisecond); err != nil {
		port.Close()
		return nil, errors.Wrap(err, "set read timeout")
	}
	return port, nil
}
