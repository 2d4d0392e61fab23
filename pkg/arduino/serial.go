package arduino

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// Default link parameters for the dispenser board
const (
	DefaultBaudRate      = 9600
	DefaultReadTimeout   = 1 * time.Second
	DefaultWindowsPort   = "COM3"
	DefaultPosixPort     = "/dev/ttyACM0"
	defaultReadChunkSize = 256
)

// Transport is the byte stream a Session talks through. A Read that hits the
// read timeout returns 0 bytes and a nil error.
type Transport interface {
	io.ReadWriteCloser
	SetReadTimeout(timeout time.Duration) error
	// ResetInputBuffer discards bytes received but not yet read
	ResetInputBuffer() error
}

// Opener opens a Transport at path with the given baud rate.
type Opener func(path string, baudRate int) (Transport, error)

// DefaultPortPath returns the conventional serial device for the host platform.
func DefaultPortPath() string {
	return portPathFor(runtime.GOOS)
}

func portPathFor(goos string) string {
	if goos == "windows" {
		return DefaultWindowsPort
	}
	return DefaultPosixPort
}

// SerialPort wraps a serial connection to the dispenser board.
type SerialPort struct {
	port serial.Port
	mu   sync.Mutex
}

// OpenSerial opens the serial port at the given baud rate, 8N1.
func OpenSerial(portPath string, baudRate int) (Transport, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portPath, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portPath, err)
	}

	log.Info().Str("port", portPath).Int("baud", baudRate).Msg("Serial port opened")

	return &SerialPort{port: port}, nil
}

// Write sends raw bytes to the serial port.
func (s *SerialPort) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Write(data)
}

// Read reads raw bytes from the serial port.
func (s *SerialPort) Read(buf []byte) (int, error) {
	return s.port.Read(buf)
}

// SetReadTimeout bounds how long a Read waits for data.
func (s *SerialPort) SetReadTimeout(timeout time.Duration) error {
	return s.port.SetReadTimeout(timeout)
}

// ResetInputBuffer drops anything the board sent that nobody read.
func (s *SerialPort) ResetInputBuffer() error {
	return s.port.ResetInputBuffer()
}

// Close closes the serial port.
func (s *SerialPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}
