package ui

import "math"

// BeginRow starts a horizontal group. Widgets inside share the row width
// unless WidgetSize says otherwise.
func (b *Builder) BeginRow(height int) {
	if !b.ui() {
		return
	}
	b.tabWidth = 100
	b.begin("row_b")
	b.num("height", height)
	b.end()
}

// EndRow closes the group opened by BeginRow
func (b *Builder) EndRow() {
	b.tabWidth = 0
	if !b.ui() {
		return
	}
	b.begin("row_e")
	b.end()
}

// WidgetSize sets the relative width of the following widgets in a row
func (b *Builder) WidgetSize(width int) {
	b.tabWidth = width
}

// Dummy takes a position without drawing anything. It can still be read
// and written, which makes it useful for values shared with scripts.
func (b *Builder) Dummy(v Var) bool {
	k := b.next()
	b.read(k, v.Text)
	return b.write(k, v)
}

// Button draws a push button and reports a click
func (b *Builder) Button(btn *Button, opts ...Option) bool {
	return b.button("button", btn, newProps(opts, WithSize(20)))
}

// ButtonIcon draws a round icon button
func (b *Builder) ButtonIcon(btn *Button, opts ...Option) bool {
	return b.button("button_i", btn, newProps(opts, WithSize(50)))
}

func (b *Builder) button(tag string, btn *Button, p *props) bool {
	k := b.next()
	if b.ui() {
		b.begin(tag)
		b.id(k)
		b.label(p)
		b.color(p.color)
		b.num("size", p.size)
		b.tabw()
		b.end()
	}
	if btn == nil {
		return b.write(k, Unbound())
	}
	return b.write(k, Uint8(&btn.state)) && btn.Clicked()
}

// Label shows a line of text
func (b *Builder) Label(value string, opts ...Option) {
	p := newProps(opts, WithSize(40))
	k := b.next()
	if b.ui() {
		b.begin("label")
		b.id(k)
		b.str("value", value)
		b.label(p)
		b.color(p.color)
		b.num("size", p.size)
		b.tabw()
		b.end()
	}
	b.read(k, func() string { return value })
}

// Title draws a section header. It has no name.
func (b *Builder) Title(label string) {
	if !b.ui() {
		return
	}
	b.begin("title")
	b.str("label", label)
	b.end()
}

// Log shows the tail of a Log buffer
func (b *Builder) Log(l *Log, opts ...Option) {
	p := newProps(opts)
	k := b.next()
	if b.ui() {
		b.begin("log")
		b.id(k)
		b.str("value", l.String())
		b.label(p)
		b.tabw()
		b.end()
	}
	b.read(k, l.String)
}

// Display shows multi-line text
func (b *Builder) Display(value string, opts ...Option) {
	p := newProps(opts, WithRows(2), WithSize(40))
	k := b.next()
	if b.ui() {
		b.begin("display")
		b.id(k)
		b.str("value", value)
		b.label(p)
		b.color(p.color)
		b.num("rows", p.rows)
		b.num("size", p.size)
		b.tabw()
		b.end()
	}
	b.read(k, func() string { return value })
}

// Table shows CSV-like text: rows split by ';', cells by ','
func (b *Builder) Table(text string, opts ...Option) {
	p := newProps(opts)
	k := b.next()
	if b.ui() {
		b.begin("table")
		b.id(k)
		b.str("value", text)
		b.str("align", p.align)
		b.str("width", p.widths)
		b.label(p)
		b.tabw()
		b.end()
	}
	b.read(k, func() string { return text })
}

// HTML embeds markup
func (b *Builder) HTML(value string, opts ...Option) {
	p := newProps(opts)
	k := b.next()
	if b.ui() {
		b.begin("html")
		b.id(k)
		b.str("value", value)
		b.label(p)
		b.tabw()
		b.end()
	}
	b.read(k, func() string { return value })
}

// JS runs a script on the client. It has no name.
func (b *Builder) JS(code string) {
	if !b.ui() {
		return
	}
	b.begin("js")
	b.str("value", code)
	b.end()
}

// Input is a text field bound to v
func (b *Builder) Input(v Var, opts ...Option) bool {
	return b.input("input", v, newProps(opts))
}

// Pass is a password field bound to v
func (b *Builder) Pass(v Var, opts ...Option) bool {
	return b.input("pass", v, newProps(opts))
}

func (b *Builder) input(tag string, v Var, p *props) bool {
	k := b.next()
	if b.ui() {
		b.begin(tag)
		b.id(k)
		b.quotedValue(v)
		b.label(p)
		if p.maxLen != 0 {
			b.num("max", p.maxLen)
		}
		if tag == "input" {
			b.str("regex", p.regex)
		}
		b.color(p.color)
		b.tabw()
		b.end()
	}
	b.read(k, v.Text)
	return b.write(k, v)
}

// Slider is a horizontal range control, 0..100 step 1 unless WithRange is given
func (b *Builder) Slider(v Var, opts ...Option) bool {
	return b.spinner("slider", v, newProps(opts))
}

// Spinner is a numeric field with +/- buttons
func (b *Builder) Spinner(v Var, opts ...Option) bool {
	return b.spinner("spinner", v, newProps(opts))
}

func (b *Builder) spinner(tag string, v Var, p *props) bool {
	k := b.next()
	if b.ui() {
		b.begin(tag)
		b.id(k)
		b.varValue(v)
		b.label(p)
		b.float("min", p.min)
		b.float("max", p.max)
		b.float("step", p.step)
		b.color(p.color)
		b.tabw()
		b.end()
	}
	b.read(k, v.Text)
	return b.write(k, v)
}

// Gauge shows value on a dial
func (b *Builder) Gauge(value float64, opts ...Option) {
	p := newProps(opts)
	if math.IsNaN(value) {
		value = 0
	}
	k := b.next()
	if b.ui() {
		b.begin("gauge")
		b.id(k)
		b.float("value", value)
		b.str("text", p.text)
		b.label(p)
		b.float("min", p.min)
		b.float("max", p.max)
		b.float("step", p.step)
		b.color(p.color)
		b.tabw()
		b.end()
	}
	b.read(k, func() string { return formatFloat(value, 64) })
}

// Switch is an on/off toggle
func (b *Builder) Switch(v *bool, opts ...Option) bool {
	return b.toggle("switch", v, newProps(opts))
}

// SwitchIcon is a toggle drawn as an icon
func (b *Builder) SwitchIcon(v *bool, opts ...Option) bool {
	return b.toggle("switch_i", v, newProps(opts))
}

// SwitchText is a toggle drawn as a text button
func (b *Builder) SwitchText(v *bool, opts ...Option) bool {
	return b.toggle("switch_t", v, newProps(opts))
}

func (b *Builder) toggle(tag string, ptr *bool, p *props) bool {
	v := Bool(ptr)
	k := b.next()
	if b.ui() {
		b.begin(tag)
		b.id(k)
		b.varValue(v)
		b.label(p)
		b.color(p.color)
		b.str("text", p.text)
		b.tabw()
		b.end()
	}
	b.read(k, v.Text)
	return b.write(k, v)
}

// Date picks a date as unix seconds
func (b *Builder) Date(v *uint32, opts ...Option) bool {
	return b.date("date", v, newProps(opts))
}

// Time picks a time of day in seconds
func (b *Builder) Time(v *uint32, opts ...Option) bool {
	return b.date("time", v, newProps(opts))
}

// DateTime picks a date and time as unix seconds
func (b *Builder) DateTime(v *uint32, opts ...Option) bool {
	return b.date("datetime", v, newProps(opts))
}

func (b *Builder) date(tag string, ptr *uint32, p *props) bool {
	v := Uint32(ptr)
	k := b.next()
	if b.ui() {
		b.begin(tag)
		b.id(k)
		b.label(p)
		b.varValue(v)
		b.color(p.color)
		b.tabw()
		b.end()
	}
	b.read(k, v.Text)
	return b.write(k, v)
}

// Select is a drop-down list. Items come from WithText, comma separated.
func (b *Builder) Select(v *uint8, opts ...Option) bool {
	p := newProps(opts)
	vv := Uint8(v)
	k := b.next()
	if b.ui() {
		b.begin("select")
		b.id(k)
		b.varValue(vv)
		b.str("text", p.text)
		b.label(p)
		b.color(p.color)
		b.tabw()
		b.end()
	}
	b.read(k, vv.Text)
	return b.write(k, vv)
}

// Flags is a row of toggles, captions from WithText
func (b *Builder) Flags(v *Flags, opts ...Option) bool {
	p := newProps(opts)
	vv := FlagsVar(v)
	k := b.next()
	if b.ui() {
		b.begin("flags")
		b.id(k)
		b.varValue(vv)
		b.str("text", p.text)
		b.label(p)
		b.color(p.color)
		b.tabw()
		b.end()
	}
	b.read(k, vv.Text)
	return b.write(k, vv)
}

// Color is a color picker
func (b *Builder) Color(v *Color, opts ...Option) bool {
	p := newProps(opts)
	vv := ColorVar(v)
	k := b.next()
	if b.ui() {
		b.begin("color")
		b.id(k)
		b.varValue(vv)
		b.label(p)
		b.tabw()
		b.end()
	}
	b.read(k, vv.Text)
	return b.write(k, vv)
}

// LED is an indicator lamp
func (b *Builder) LED(on bool, opts ...Option) {
	p := newProps(opts)
	v := Bool(&on)
	k := b.next()
	if b.ui() {
		b.begin("led")
		b.id(k)
		b.varValue(v)
		b.label(p)
		b.str("text", p.icon)
		b.tabw()
		b.end()
	}
	b.read(k, v.Text)
}

// Space adds vertical padding. It has no name.
func (b *Builder) Space(height int) {
	if !b.ui() {
		return
	}
	b.begin("spacer")
	b.num("height", height)
	b.tabw()
	b.end()
}

// Menu sets the device menu items, comma separated. The selection is kept in
// Env.Menu and read back with CurrentMenu. Choosing an item redraws the panel.
func (b *Builder) Menu(items string) bool {
	v := Uint8(b.env.Menu)
	if b.ui() {
		b.begin("menu")
		b.raw(`,"name":"` + MenuName + `"`)
		b.varValue(v)
		b.str("text", items)
		b.str("label", "")
		b.tabw()
		b.end()
	}
	if b.mode == ModeRead && !b.matched && b.name == MenuName {
		b.matched = true
		b.result = v.Text()
	}
	if b.mode == ModeWrite && !b.matched && b.name == MenuName {
		b.matched = true
		v.Parse(b.value)
		b.Refresh()
		return true
	}
	return false
}

// Tabs is a tab strip bound to v. Choosing a tab redraws the panel.
func (b *Builder) Tabs(v *uint8, items string, opts ...Option) bool {
	p := newProps(opts)
	vv := Uint8(v)
	k := b.next()
	if b.ui() {
		b.begin("tabs")
		b.id(k)
		b.varValue(vv)
		b.str("text", items)
		b.label(p)
		b.tabw()
		b.end()
	}
	if b.write(k, vv) {
		b.Refresh()
		return true
	}
	return false
}

// Canvas draws with the commands queued by draw. draw only runs when the
// panel is rendered. A non-nil pos makes the canvas clickable and receives
// the click position.
func (b *Builder) Canvas(width, height int, draw func(cv *Canvas), pos *Point, opts ...Option) bool {
	p := newProps(opts)
	k := b.next()
	if b.ui() {
		b.begin("canvas")
		b.id(k)
		b.num("width", width)
		b.num("height", height)
		b.label(p)
		if pos != nil {
			b.raw(`,"active":1`)
		}
		b.key("value")
		b.buf = append(b.buf, '[')
		if draw != nil {
			cv := &Canvas{}
			draw(cv)
			b.buf = cv.appendJSON(b.buf)
		}
		b.buf = append(b.buf, ']')
		b.tabw()
		b.end()
	}
	if pos == nil {
		return b.write(k, Unbound())
	}
	return b.write(k, PosVar(pos))
}

// Image shows a picture from the device filesystem or a URL
func (b *Builder) Image(path string, opts ...Option) {
	p := newProps(opts)
	k := b.next()
	if !b.ui() {
		return
	}
	b.begin("image")
	b.id(k)
	b.str("value", path)
	b.label(p)
	b.tabw()
	b.end()
}

// Stream embeds a video stream served on port. It has no name.
func (b *Builder) Stream(port int) {
	if !b.ui() {
		return
	}
	b.begin("stream")
	b.num("port", port)
	b.tabw()
	b.end()
}

// Joystick reports a stick position centred on (0, 0), range -255..255
func (b *Builder) Joystick(pos *Point, opts ...Option) bool {
	return b.joy("joy", pos, newProps(opts, WithAutoCenter(true)))
}

// Dpad reports direction presses as -1, 0 or 1 per axis
func (b *Builder) Dpad(pos *Point, opts ...Option) bool {
	p := newProps(opts)
	p.auto = false
	p.exp = false
	return b.joy("dpad", pos, p)
}

func (b *Builder) joy(tag string, pos *Point, p *props) bool {
	k := b.next()
	if b.ui() {
		b.begin(tag)
		b.id(k)
		if p.auto {
			b.num("auto", 1)
		}
		if p.exp {
			b.num("exp", 1)
		}
		b.label(p)
		b.color(p.color)
		b.tabw()
		b.end()
	}
	if pos == nil {
		return b.write(k, Unbound())
	}
	if !b.write(k, PosVar(pos)) {
		return false
	}
	pos.X -= 255
	pos.Y -= 255
	return true
}

// Confirm pops up a yes/no dialog when triggered from a script
func (b *Builder) Confirm(v *bool, opts ...Option) bool {
	p := newProps(opts)
	k := b.next()
	if b.ui() {
		b.begin("confirm")
		b.id(k)
		b.label(p)
		b.end()
	}
	return b.write(k, Bool(v))
}

// Prompt pops up a text entry dialog
func (b *Builder) Prompt(v Var, opts ...Option) bool {
	p := newProps(opts)
	k := b.next()
	if b.ui() {
		b.begin("prompt")
		b.id(k)
		b.quotedValue(v)
		b.label(p)
		b.end()
	}
	return b.write(k, v)
}
