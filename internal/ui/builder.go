package ui

import (
	"strconv"
	"strings"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

// Mode selects what one pass over the build function does
type Mode uint8

const (
	// ModeCount measures the rendered size without keeping it
	ModeCount Mode = iota
	// ModeRender serializes every widget
	ModeRender
	// ModeRead captures the value of one widget
	ModeRead
	// ModeWrite parses a value into one widget's variable
	ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeCount:
		return "count"
	case ModeRender:
		return "render"
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	}
	return "mode?"
}

// BuildFunc describes the control panel. It must declare the same widgets in
// the same order on every call: widgets are matched across passes by position
// only, so skipping a widget between passes hands values to the wrong one.
type BuildFunc func(b *Builder)

// MenuName is the fixed name of the Menu widget
const MenuName = "_menu"

// Env is the per request context handed to a pass
type Env struct {
	Client protocol.Client
	// Menu holds the selected menu item across passes. Nil keeps it local to
	// the pass.
	Menu *uint8
}

// Builder is passed to the build function. A fresh one is made per pass.
type Builder struct {
	mode   Mode
	env    Env
	menu   uint8
	cursor int

	target  int
	name    string
	value   string
	matched bool
	result  string
	refresh bool

	buf      []byte
	total    int
	maxChunk int
	flush    func([]byte)

	tabWidth int
}

func newBuilder(mode Mode, env Env) *Builder {
	b := &Builder{mode: mode, env: env, target: -1}
	if b.env.Menu == nil {
		b.env.Menu = &b.menu
	}
	return b
}

func (b *Builder) setTarget(name string) {
	b.name = name
	b.target = -1
	if !strings.HasPrefix(name, "_n") || len(name) == 2 {
		return
	}
	n, err := strconv.Atoi(name[2:])
	if err == nil && n >= 0 {
		b.target = n
	}
}

// Count runs a measuring pass and returns the number of bytes Render would
// produce for the same state
func Count(fn BuildFunc, env Env) int {
	b := newBuilder(ModeCount, env)
	fn(b)
	return b.total + len(b.buf)
}

// Render appends the comma separated widget list to dst and returns it.
// With maxChunk > 0 and flush set, dst is passed to flush and emptied every
// time it reaches maxChunk bytes, so the caller gets back only the tail.
func Render(fn BuildFunc, env Env, dst []byte, maxChunk int, flush func([]byte)) []byte {
	b := newBuilder(ModeRender, env)
	b.buf = dst
	b.maxChunk = maxChunk
	b.flush = flush
	fn(b)
	return b.buf
}

// Read returns the wire value of the widget called name
func Read(fn BuildFunc, env Env, name string) (string, bool) {
	b := newBuilder(ModeRead, env)
	b.setTarget(name)
	fn(b)
	return b.result, b.matched
}

// Write parses value into the widget called name. It reports whether a
// widget matched and whether that widget asked for the panel to be redrawn.
func Write(fn BuildFunc, env Env, name, value string) (matched, refresh bool) {
	b := newBuilder(ModeWrite, env)
	b.setTarget(name)
	b.value = value
	fn(b)
	return b.matched, b.refresh
}

// Mode reports the current pass
func (b *Builder) Mode() Mode {
	return b.mode
}

// Client is the peer the pass runs for
func (b *Builder) Client() protocol.Client {
	return b.env.Client
}

// CurrentMenu is the selected Menu item
func (b *Builder) CurrentMenu() uint8 {
	return *b.env.Menu
}

// Refresh asks for the panel to be sent again after a write
func (b *Builder) Refresh() {
	b.refresh = true
}

// Changed reports whether this pass wrote into a widget
func (b *Builder) Changed() bool {
	return b.mode == ModeWrite && b.matched
}

func (b *Builder) ui() bool {
	return b.mode == ModeCount || b.mode == ModeRender
}

// next assigns the positional index of an id-bearing widget
func (b *Builder) next() int {
	k := b.cursor
	b.cursor++
	return k
}

func (b *Builder) hit(k int) bool {
	return !b.matched && b.target == k
}

// read captures text when widget k is the read target
func (b *Builder) read(k int, text func() string) {
	if b.mode == ModeRead && b.hit(k) {
		b.matched = true
		b.result = text()
	}
}

// write parses the pending value into v when widget k is the write target
func (b *Builder) write(k int, v Var) bool {
	if b.mode != ModeWrite || !b.hit(k) {
		return false
	}
	b.matched = true
	v.Parse(b.value)
	return true
}

// ----- serialization -----

func (b *Builder) raw(s string) {
	b.buf = append(b.buf, s...)
}

func (b *Builder) begin(typ string) {
	b.raw(`{"type":"`)
	b.raw(typ)
	b.raw(`"`)
}

func (b *Builder) end() {
	b.buf = append(b.buf, '}')
	if b.mode == ModeCount {
		b.total += len(b.buf)
		b.buf = b.buf[:0]
	} else if b.flush != nil && b.maxChunk > 0 && len(b.buf) >= b.maxChunk {
		b.flush(b.buf)
		b.buf = b.buf[:0]
	}
	b.buf = append(b.buf, ',')
}

func (b *Builder) key(k string) {
	b.raw(`,"`)
	b.raw(k)
	b.raw(`":`)
}

func (b *Builder) str(k, v string) {
	b.key(k)
	b.buf = protocol.AppendString(b.buf, v)
}

func (b *Builder) num(k string, v int) {
	b.key(k)
	b.buf = strconv.AppendInt(b.buf, int64(v), 10)
}

func (b *Builder) float(k string, v float64) {
	b.key(k)
	b.raw(formatFloat(v, 64))
}

func (b *Builder) id(k int) {
	b.raw(`,"name":"_n`)
	b.buf = strconv.AppendInt(b.buf, int64(k), 10)
	b.raw(`"`)
}

// varValue writes "value" with numbers bare and everything else quoted
func (b *Builder) varValue(v Var) {
	b.key("value")
	if v.numeric() {
		b.raw(v.Text())
	} else {
		b.buf = protocol.AppendString(b.buf, v.Text())
	}
}

func (b *Builder) quotedValue(v Var) {
	b.str("value", v.Text())
}

func (b *Builder) color(c Color) {
	if c == Default {
		return
	}
	b.key("color")
	b.buf = strconv.AppendUint(b.buf, uint64(c.Hex()), 10)
}

func (b *Builder) label(p *props) {
	b.str("label", p.label)
}

func (b *Builder) tabw() {
	if b.tabWidth != 0 {
		b.num("tab_w", b.tabWidth)
	}
}
