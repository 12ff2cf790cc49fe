package transfer

import (
	"fmt"
	"io"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

// Target is the firmware region an update writes
type Target uint8

const (
	TargetFlash Target = iota
	TargetFS
)

func (t Target) String() string {
	if t == TargetFS {
		return "fs"
	}
	return "flash"
}

// ParseTarget accepts "flash" or "fs"
func ParseTarget(name string) (Target, error) {
	switch name {
	case "flash":
		return TargetFlash, nil
	case "fs":
		return TargetFS, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadTarget, name)
}

// Sink receives a firmware image. Commit finishes a complete image and
// Abort throws a partial one away.
type Sink interface {
	io.Writer
	Commit() error
	Abort()
}

// Updater opens firmware sinks
type Updater interface {
	Begin(t Target) (Sink, error)
}

// OTA receives a firmware image from its owner in base64 chunks
type OTA struct {
	slot
	up      Updater
	sink    Sink
	target  Target
	written int64
	chunks  int
}

// NewOTA makes an update slot writing through up
func NewOTA(up Updater) *OTA {
	return &OTA{up: up}
}

// Start validates the target name and opens a sink for it
func (o *OTA) Start(owner protocol.Client, name string, now uint32) error {
	if o.active {
		return ErrBusy
	}
	t, err := ParseTarget(name)
	if err != nil {
		return err
	}
	sink, err := o.up.Begin(t)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}
	if err := o.claim(owner, now); err != nil {
		sink.Abort()
		return err
	}
	o.sink = sink
	o.target = t
	o.written = 0
	o.chunks = 0
	return nil
}

// Chunk writes one base64 chunk. On the last chunk the image is committed
// and the session closes whether or not the commit succeeds.
func (o *OTA) Chunk(c protocol.Client, marker, value string, now uint32) (last bool, err error) {
	if err := o.check(c); err != nil {
		return false, err
	}
	last, err = ParseMarker(marker)
	if err != nil {
		return false, err
	}
	data, err := decode(value)
	if err != nil {
		o.Abort()
		return false, err
	}
	n, err := o.sink.Write(data)
	if err == nil && n < len(data) {
		err = ErrShortWrite
	}
	if err != nil {
		o.Abort()
		return false, fmt.Errorf("failed to write %s image: %w", o.target, err)
	}
	o.written += int64(n)
	o.chunks++
	o.touched = now
	if last {
		return true, o.commit()
	}
	return false, nil
}

// Run writes a whole image from r in one go, as the HTTP and URL update
// paths do. It holds the slot for the duration so chunked updates are
// refused meanwhile.
func (o *OTA) Run(owner protocol.Client, name string, r io.Reader, now uint32) error {
	if err := o.Start(owner, name, now); err != nil {
		return err
	}
	n, err := io.Copy(o.sink, r)
	o.written = n
	if err != nil {
		o.Abort()
		return fmt.Errorf("failed to write %s image: %w", o.target, err)
	}
	return o.commit()
}

func (o *OTA) commit() error {
	err := o.sink.Commit()
	o.sink = nil
	o.release()
	if err != nil {
		return fmt.Errorf("failed to finish %s update: %w", o.target, err)
	}
	return nil
}

// Abort drops a partial image
func (o *OTA) Abort() {
	if o.sink != nil {
		o.sink.Abort()
		o.sink = nil
	}
	o.release()
}

// Progress is the byte and chunk count received so far
func (o *OTA) Progress() (written int64, chunks int) {
	return o.written, o.chunks
}

// Target is the region being updated
func (o *OTA) Target() Target {
	return o.target
}
