package tui

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

// Kind tells log lines from dispatcher events
type Kind uint8

const (
	KindEvent Kind = iota
	KindLog
)

// Entry is one line of the monitor log
type Entry struct {
	Time time.Time
	Kind Kind
	From protocol.Conn
	Text string
}

// Feed carries events and log lines into the monitor. Sends never block:
// when the monitor falls behind, entries are counted and dropped.
type Feed struct {
	ch      chan Entry
	dropped atomic.Uint64
}

// NewFeed creates a feed buffering up to size entries
func NewFeed(size int) *Feed {
	return &Feed{ch: make(chan Entry, size)}
}

func (f *Feed) push(e Entry) {
	select {
	case f.ch <- e:
	default:
		f.dropped.Add(1)
	}
}

// Event records a dispatcher event. It matches hub.OnEvent.
func (f *Feed) Event(ev protocol.Event, from protocol.Conn) {
	f.push(Entry{Time: time.Now(), Kind: KindEvent, From: from, Text: ev.String()})
}

// Write takes formatted log output, one entry per line, so the feed can be
// the logger's output while the monitor owns the terminal
func (f *Feed) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			f.push(Entry{Time: time.Now(), Kind: KindLog, From: protocol.ConnSystem, Text: line})
		}
	}
	return len(p), nil
}

// Dropped is the number of entries lost to a full buffer
func (f *Feed) Dropped() uint64 {
	return f.dropped.Load()
}
