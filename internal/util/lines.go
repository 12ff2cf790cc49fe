package util

import "bytes"

// MaxLine caps a buffered partial line. Longer input is discarded up to the
// next newline.
const MaxLine = 4096

// LineBuffer reassembles newline terminated commands from arbitrary pieces
// of a byte stream
type LineBuffer struct {
	buf      []byte
	overflow bool
}

// Feed appends data and calls fn for every complete line. The line has the
// trailing "\r\n" or "\n" removed. Empty lines are skipped.
func (l *LineBuffer) Feed(data []byte, fn func(line string)) {
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			l.append(data)
			return
		}
		l.append(data[:i])
		data = data[i+1:]

		if !l.overflow {
			line := bytes.TrimRight(l.buf, "\r")
			if len(line) > 0 {
				fn(string(line))
			}
		}
		l.buf = l.buf[:0]
		l.overflow = false
	}
}

func (l *LineBuffer) append(p []byte) {
	if l.overflow {
		return
	}
	if len(l.buf)+len(p) > MaxLine {
		l.overflow = true
		l.buf = l.buf[:0]
		return
	}
	l.buf = append(l.buf, p...)
}

// Pending is the number of buffered bytes without a newline yet
func (l *LineBuffer) Pending() int {
	return len(l.buf)
}

// Reset drops any partial line
func (l *LineBuffer) Reset() {
	l.buf = l.buf[:0]
	l.overflow = false
}

// Split calls fn with consecutive pieces of data no longer than size
func Split(data []byte, size int, fn func(part []byte) error) error {
	if size <= 0 {
		return fn(data)
	}
	for len(data) > 0 {
		n := min(size, len(data))
		if err := fn(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}
