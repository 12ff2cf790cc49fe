package transfer

import (
	"fmt"
	"io"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

// FileTarget creates and removes the files uploads write into
type FileTarget interface {
	Create(path string) (io.WriteCloser, error)
	Remove(path string) error
}

// Upload receives a file from its owner in base64 chunks
type Upload struct {
	slot
	fs      FileTarget
	path    string
	w       io.WriteCloser
	written int64
	chunks  int
}

// NewUpload makes an upload slot writing through fs
func NewUpload(fs FileTarget) *Upload {
	return &Upload{fs: fs}
}

// Start creates path, parents included, and opens the session
func (u *Upload) Start(owner protocol.Client, path string, now uint32) error {
	if u.active {
		return ErrBusy
	}
	w, err := u.fs.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}
	if err := u.claim(owner, now); err != nil {
		_ = w.Close()
		return err
	}
	u.path = path
	u.w = w
	u.written = 0
	u.chunks = 0
	return nil
}

// Chunk appends one base64 chunk. marker is "next" or "last"; the last chunk
// closes the file. A decode or write failure closes the session and removes
// the partial file.
func (u *Upload) Chunk(c protocol.Client, marker, value string, now uint32) (last bool, err error) {
	if err := u.check(c); err != nil {
		return false, err
	}
	last, err = ParseMarker(marker)
	if err != nil {
		return false, err
	}
	data, err := decode(value)
	if err != nil {
		u.discard()
		return false, err
	}
	n, err := u.w.Write(data)
	if err == nil && n < len(data) {
		err = ErrShortWrite
	}
	if err != nil {
		u.discard()
		return false, fmt.Errorf("failed to write %s: %w", u.path, err)
	}
	u.written += int64(n)
	u.chunks++
	u.touched = now
	if last {
		err := u.w.Close()
		u.w = nil
		u.release()
		if err != nil {
			return true, fmt.Errorf("failed to close %s: %w", u.path, err)
		}
	}
	return last, nil
}

// Abort closes the file and keeps what was written so far
func (u *Upload) Abort() {
	if u.w != nil {
		_ = u.w.Close()
		u.w = nil
	}
	u.release()
}

func (u *Upload) discard() {
	u.Abort()
	_ = u.fs.Remove(u.path)
}

// Progress is the byte and chunk count received so far
func (u *Upload) Progress() (written int64, chunks int) {
	return u.written, u.chunks
}

// Path is the file being written
func (u *Upload) Path() string {
	return u.path
}
