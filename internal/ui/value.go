package ui

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the data type of a bound variable
type Kind uint8

const (
	KindNone Kind = iota
	KindString
	KindBool
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindFloat
	KindDouble
	KindColor
	KindFlags
	KindPos
)

var kindNames = [...]string{"none", "string", "bool", "int8", "uint8", "int16", "uint16", "int32", "uint32",
	"float", "double", "color", "flags", "pos"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind?"
}

// Var binds a widget to a program variable of a known kind. The zero Var is
// unbound: it renders as 0 and ignores writes.
type Var struct {
	kind Kind
	ptr  any
}

// Constructors bind a pointer of the matching type.

func String(p *string) Var { return Var{KindString, p} }
func Bool(p *bool) Var { return Var{KindBool, p} }
func Int8(p *int8) Var { return Var{KindInt8, p} }
func Uint8(p *uint8) Var { return Var{KindUint8, p} }
func Int16(p *int16) Var { return Var{KindInt16, p} }
func Uint16(p *uint16) Var { return Var{KindUint16, p} }
func Int32(p *int32) Var { return Var{KindInt32, p} }
func Uint32(p *uint32) Var { return Var{KindUint32, p} }
func Float(p *float32) Var { return Var{KindFloat, p} }
func Double(p *float64) Var { return Var{KindDouble, p} }
func ColorVar(p *Color) Var { return Var{KindColor, p} }
func FlagsVar(p *Flags) Var { return Var{KindFlags, p} }
func PosVar(p *Point) Var { return Var{KindPos, p} }
func Unbound() Var { return Var{} }

// Kind reports the bound data type
func (v Var) Kind() Kind {
	return v.kind
}

func (v Var) bound() bool {
	switch p := v.ptr.(type) {
	case nil:
		return false
	case *string:
		return p != nil
	case *bool:
		return p != nil
	case *int8:
		return p != nil
	case *uint8:
		return p != nil
	case *int16:
		return p != nil
	case *uint16:
		return p != nil
	case *int32:
		return p != nil
	case *uint32:
		return p != nil
	case *float32:
		return p != nil
	case *float64:
		return p != nil
	case *Color:
		return p != nil
	case *Flags:
		return p != nil
	case *Point:
		return p != nil
	}
	return false
}

// Text renders the current value the way it travels on the wire
func (v Var) Text() string {
	if !v.bound() {
		return "0"
	}
	switch v.kind {
	case KindString:
		return *v.ptr.(*string)
	case KindBool:
		if *v.ptr.(*bool) {
			return "1"
		}
		return "0"
	case KindInt8:
		return strconv.FormatInt(int64(*v.ptr.(*int8)), 10)
	case KindUint8:
		return strconv.FormatUint(uint64(*v.ptr.(*uint8)), 10)
	case KindInt16:
		return strconv.FormatInt(int64(*v.ptr.(*int16)), 10)
	case KindUint16:
		return strconv.FormatUint(uint64(*v.ptr.(*uint16)), 10)
	case KindInt32:
		return strconv.FormatInt(int64(*v.ptr.(*int32)), 10)
	case KindUint32:
		return strconv.FormatUint(uint64(*v.ptr.(*uint32)), 10)
	case KindFloat:
		return formatFloat(float64(*v.ptr.(*float32)), 32)
	case KindDouble:
		return formatFloat(*v.ptr.(*float64), 64)
	case KindColor:
		return strconv.FormatUint(uint64(v.ptr.(*Color).Hex()), 10)
	case KindFlags:
		return v.ptr.(*Flags).String()
	case KindPos:
		return ""
	}
	return "0"
}

// numeric reports whether Text can be emitted without quotes
func (v Var) numeric() bool {
	switch v.kind {
	case KindString, KindFlags, KindPos:
		return false
	}
	return true
}

// Parse stores a wire value into the bound variable. Malformed numbers
// parse as far as they are valid, like the C library conversions.
func (v Var) Parse(s string) {
	if !v.bound() {
		return
	}
	switch v.kind {
	case KindString:
		*v.ptr.(*string) = s
	case KindBool:
		*v.ptr.(*bool) = strings.HasPrefix(s, "1")
	case KindInt8:
		*v.ptr.(*int8) = int8(atoi(s))
	case KindUint8:
		*v.ptr.(*uint8) = uint8(atoi(s))
	case KindInt16:
		*v.ptr.(*int16) = int16(atoi(s))
	case KindUint16:
		*v.ptr.(*uint16) = uint16(atoi(s))
	case KindInt32:
		*v.ptr.(*int32) = int32(atoi(s))
	case KindUint32:
		*v.ptr.(*uint32) = uint32(atoi(s))
	case KindFloat:
		*v.ptr.(*float32) = float32(atof(s))
	case KindDouble:
		*v.ptr.(*float64) = atof(s)
	case KindColor:
		*v.ptr.(*Color) = ColorFromHex(uint32(atoi(s)))
	case KindFlags:
		*v.ptr.(*Flags) = ParseFlags(s)
	case KindPos:
		xy := uint32(atoi(s))
		*v.ptr.(*Point) = Point{X: int(xy >> 16), Y: int(xy & 0xffff), Changed: true}
	}
}

func formatFloat(f float64, bits int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// atoi parses an optional sign followed by digits, stopping at the first
// other byte
func atoi(s string) int64 {
	s = strings.TrimLeft(s, " \t")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	var n int64
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int64(s[i]-'0')
	}
	if neg {
		return -n
	}
	return n
}

func atof(s string) float64 {
	s = strings.TrimSpace(s)
	for end := len(s); end > 0; end-- {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return f
		}
	}
	return 0
}
