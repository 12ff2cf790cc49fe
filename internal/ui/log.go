package ui

import "strings"

// Log is a fixed size ring buffer shown by the Log widget. It implements
// io.Writer so fmt.Fprintf can print into it. Carriage returns are dropped.
type Log struct {
	buf  []byte
	size int
	n    int
	head int
}

// NewLog allocates a log holding the last size bytes
func NewLog(size int) *Log {
	if size < 1 {
		size = 64
	}
	l := &Log{buf: make([]byte, size), size: size}
	l.Clear()
	return l
}

// Clear empties the log
func (l *Log) Clear() {
	l.n = 0
	l.head = 0
	l.put('\n')
}

func (l *Log) put(c byte) {
	if c == '\r' {
		return
	}
	if l.n < l.size {
		l.n++
	}
	l.buf[l.head] = c
	l.head++
	if l.head >= l.size {
		l.head = 0
	}
}

func (l *Log) at(i int) byte {
	if l.n < l.size {
		return l.buf[i]
	}
	return l.buf[(l.head+i)%l.size]
}

func (l *Log) Write(p []byte) (int, error) {
	for _, c := range p {
		l.put(c)
	}
	return len(p), nil
}

// Print appends s
func (l *Log) Print(s string) {
	_, _ = l.Write([]byte(s))
}

// Println appends s and a newline
func (l *Log) Println(s string) {
	l.Print(s)
	l.put('\n')
}

// String returns the buffered text. Output starts after the oldest newline
// still in the buffer so a partially overwritten line is never shown.
func (l *Log) String() string {
	var sb strings.Builder
	started := false
	for i := 0; i < l.n; i++ {
		c := l.at(i)
		if started {
			sb.WriteByte(c)
		} else if c == '\n' {
			started = true
		}
	}
	return sb.String()
}
