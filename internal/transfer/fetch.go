package transfer

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

// Source is what a fetch reads from: either an in-memory buffer or a reader
// of known size. A Reader that is also an io.Closer is closed when the
// session ends.
type Source struct {
	Data   []byte
	Reader io.Reader
	Size   int64
}

// BytesSource serves a fixed buffer
func BytesSource(b []byte) *Source {
	return &Source{Data: b, Size: int64(len(b))}
}

func (s *Source) valid() bool {
	return s != nil && (s.Data != nil || s.Reader != nil)
}

// Chunk is one slice of a download
type Chunk struct {
	Index  int
	Amount int
	Data   []byte
}

// Fetch streams a file to its owner in fixed size chunks
type Fetch struct {
	slot
	size   int
	path   string
	r      io.Reader
	closer io.Closer
	count  int
	amount int
	onEnd  func(path string)
}

// NewFetch makes a fetch slot sending chunkSize bytes per chunk
func NewFetch(chunkSize int) *Fetch {
	if chunkSize < 1 {
		chunkSize = 512
	}
	return &Fetch{size: chunkSize}
}

// Start opens a session for path. onEnd, when set, runs once the session
// closes for any reason.
func (f *Fetch) Start(owner protocol.Client, path string, src *Source, onEnd func(string), now uint32) error {
	if f.active {
		return ErrBusy
	}
	if !src.valid() {
		return fmt.Errorf("%w: %s", ErrOpen, path)
	}
	if err := f.claim(owner, now); err != nil {
		return err
	}
	f.path = path
	f.onEnd = onEnd
	f.closer = nil
	if src.Reader != nil {
		f.r = src.Reader
		if c, ok := src.Reader.(io.Closer); ok {
			f.closer = c
		}
	} else {
		f.r = bytes.NewReader(src.Data)
	}
	f.count = 0
	f.amount = int((src.Size + int64(f.size) - 1) / int64(f.size))
	return nil
}

// Next reads the following chunk for c. done is set on the final chunk, at
// which point the session is already closed.
func (f *Fetch) Next(c protocol.Client, now uint32) (ch Chunk, done bool, err error) {
	if err := f.check(c); err != nil {
		return Chunk{}, false, err
	}
	f.touched = now

	buf := make([]byte, f.size)
	n, err := io.ReadFull(f.r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		f.Stop()
		return Chunk{}, false, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	ch = Chunk{Index: f.count, Amount: f.amount, Data: buf[:n]}
	f.count++
	if f.count >= f.amount {
		f.Stop()
		return ch, true, nil
	}
	return ch, false, nil
}

// Stop closes the session early and returns its path
func (f *Fetch) Stop() string {
	path := f.path
	if f.closer != nil {
		_ = f.closer.Close()
		f.closer = nil
	}
	if f.onEnd != nil {
		f.onEnd(path)
		f.onEnd = nil
	}
	f.r = nil
	f.path = ""
	f.release()
	return path
}

// Progress is the number of chunks sent and the total
func (f *Fetch) Progress() (sent, amount int) {
	return f.count, f.amount
}

// Path is the file being fetched
func (f *Fetch) Path() string {
	return f.path
}
