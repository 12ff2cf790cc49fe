package stream

import (
	"fmt"
	"os"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// readTimeout lets Serve notice cancellation on ports that never close
const readTimeout = 500 * time.Millisecond

// OpenSerial opens a serial port 8N1 at baud and wraps it as a transport
func OpenSerial(d Dispatcher, port string, baud int) (*Transport, error) {
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return New(d, port, p, p), nil
}

// Stdio serves commands from stdin and answers on stdout
func Stdio(d Dispatcher) *Transport {
	return New(d, "stdio", os.Stdin, os.Stdout)
}

// Port describes one serial port found on the system
type Port struct {
	Name    string
	USB     bool
	VID     string
	PID     string
	Product string
}

// ListPorts enumerates the serial ports on the system
func ListPorts() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	ports := make([]Port, 0, len(details))
	for _, d := range details {
		ports = append(ports, Port{
			Name:    d.Name,
			USB:     d.IsUSB,
			VID:     d.VID,
			PID:     d.PID,
			Product: d.Product,
		})
	}
	return ports, nil
}
