package link

import (
	"fmt"
	"io"

	"github.com/OpenPSG/dgus/config"
	"go.bug.st/serial"
)

// Port is the byte stream a display is reached through. A read may return
// zero bytes when the port's read timeout expires.
type Port interface {
	io.ReadWriteCloser
}

// Open opens the serial device described by cfg, 8N1.
func Open(cfg config.Serial) (Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Device, err)
		}
	}
	return port, nil
}

// Ports lists the serial devices present on the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
