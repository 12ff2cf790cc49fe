// Package stream carries hub commands over a byte stream: a serial port or
// the process stdin and stdout. One command per line, answers are written
// back unframed.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vitaminmoo/gyverhub/internal/config"
	"github.com/vitaminmoo/gyverhub/internal/hub"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/util"
)

// Dispatcher routes one command line
type Dispatcher interface {
	DispatchURL(from protocol.Conn, url string, reply hub.Reply)
}

// Transport serves one stream
type Transport struct {
	d    Dispatcher
	name string
	r    io.Reader
	log  logrus.FieldLogger

	mu sync.Mutex
	w  io.Writer
}

// New wraps a reader and writer pair. name shows up in log lines.
func New(d Dispatcher, name string, r io.Reader, w io.Writer) *Transport {
	return &Transport{
		d:    d,
		name: name,
		r:    r,
		w:    w,
		log:  config.Log.WithFields(logrus.Fields{"conn": protocol.ConnStream.String(), "port": name}),
	}
}

// Conn implements hub.Transport
func (t *Transport) Conn() protocol.Conn {
	return protocol.ConnStream
}

// Broadcast implements hub.Transport
func (t *Transport) Broadcast(data []byte) error {
	return t.write(data)
}

func (t *Transport) write(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if config.Verbose {
		util.Trace(config.Debugf, t.name+" tx", data)
	}
	n, err := t.w.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write to %s: %w", t.name, err)
	}
	if n != len(data) {
		return io.ErrShortWrite
	}
	return nil
}

func (t *Transport) reply(data []byte) {
	if err := t.write(data); err != nil {
		t.log.WithError(err).Warn("failed to send answer")
	}
}

// Serve reads commands until the reader fails or ctx is done. When the
// reader is an io.Closer it is closed on return. io.EOF ends Serve without
// an error.
func (t *Transport) Serve(ctx context.Context) error {
	if c, ok := t.r.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { c.Close() })
		defer stop()
		defer c.Close()
	}

	var lines util.LineBuffer
	buf := make([]byte, 256)
	for {
		n, err := t.r.Read(buf)
		if n > 0 {
			if config.Verbose {
				util.Trace(config.Debugf, t.name+" rx", buf[:n])
			}
			lines.Feed(buf[:n], func(line string) {
				t.d.DispatchURL(protocol.ConnStream, line, t.reply)
			})
		}
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read from %s: %w", t.name, err)
		}
	}
}
