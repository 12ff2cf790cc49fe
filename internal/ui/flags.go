package ui

import "strings"

// Flags is a bit string shown as a row of toggles. On the wire it is a
// string of '0' and '1' characters, first flag first.
type Flags struct {
	bits []bool
}

// NewFlags returns n cleared flags
func NewFlags(n int) Flags {
	return Flags{bits: make([]bool, n)}
}

// ParseFlags reads a '0'/'1' string, ignoring any other characters
func ParseFlags(s string) Flags {
	f := Flags{}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
			f.bits = append(f.bits, false)
		case '1':
			f.bits = append(f.bits, true)
		}
	}
	return f
}

// Len is the number of flags
func (f Flags) Len() int {
	return len(f.bits)
}

// Get reports flag i; out of range flags read as false
func (f Flags) Get(i int) bool {
	return i >= 0 && i < len(f.bits) && f.bits[i]
}

// Set changes flag i when it is in range
func (f *Flags) Set(i int, v bool) {
	if i >= 0 && i < len(f.bits) {
		f.bits[i] = v
	}
}

// Flip toggles flag i and returns its new state
func (f *Flags) Flip(i int) bool {
	if i < 0 || i >= len(f.bits) {
		return false
	}
	f.bits[i] = !f.bits[i]
	return f.bits[i]
}

func (f Flags) String() string {
	var sb strings.Builder
	sb.Grow(len(f.bits))
	for _, b := range f.bits {
		if b {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
