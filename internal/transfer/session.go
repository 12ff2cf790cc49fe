// Package transfer holds the single-slot state machines behind chunked file
// fetch, file upload and firmware update exchanges.
//
// Each kind allows one active session across all transports. A session is
// owned by the client that opened it; continuations from anyone else are
// rejected without touching its state. Times are milliseconds from a free
// running 32-bit clock, compared with wraparound-safe subtraction.
package transfer

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

var (
	ErrBusy       = errors.New("transfer already running")
	ErrNotActive  = errors.New("no transfer running")
	ErrNotOwner   = errors.New("transfer belongs to another client")
	ErrBadMarker  = errors.New("chunk marker must be next or last")
	ErrBadTarget  = errors.New("update target must be flash or fs")
	ErrOpen       = errors.New("failed to open transfer target")
	ErrShortWrite = errors.New("short write")
)

// Chunk markers carried in the name segment of *_chunk commands
const (
	MarkerNext = "next"
	MarkerLast = "last"
)

// ParseMarker reports whether name marks the final chunk
func ParseMarker(name string) (last bool, err error) {
	switch name {
	case MarkerLast:
		return true, nil
	case MarkerNext:
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrBadMarker, name)
}

// slot is the ownership and deadline part shared by every session kind
type slot struct {
	active  bool
	owner   protocol.Client
	touched uint32
}

func (s *slot) claim(owner protocol.Client, now uint32) error {
	if s.active {
		return ErrBusy
	}
	s.active = true
	s.owner = owner
	s.touched = now
	return nil
}

func (s *slot) check(c protocol.Client) error {
	if !s.active {
		return ErrNotActive
	}
	if s.owner != c {
		return fmt.Errorf("%w: %s", ErrNotOwner, c)
	}
	return nil
}

func (s *slot) release() {
	s.active = false
}

// Active reports whether a session is open
func (s *slot) Active() bool {
	return s.active
}

// Owner is the client that opened the session
func (s *slot) Owner() protocol.Client {
	return s.owner
}

// Expired reports whether an open session has been idle for timeout ms
func (s *slot) Expired(now, timeout uint32) bool {
	return s.active && now-s.touched >= timeout
}

func decode(value string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode chunk: %w", err)
	}
	return data, nil
}
