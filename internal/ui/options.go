package ui

// Option tweaks how a widget is drawn
type Option func(*props)

type props struct {
	label  string
	text   string
	icon   string
	color  Color
	size   int
	rows   int
	min    float64
	max    float64
	step   float64
	maxLen int
	regex  string
	align  string
	widths string
	auto   bool
	exp    bool
}

func newProps(opts []Option, defaults ...Option) *props {
	p := &props{color: Default, max: 100, step: 1}
	for _, o := range defaults {
		o(p)
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// WithLabel sets the caption above the widget
func WithLabel(s string) Option { return func(p *props) { p.label = s } }

// WithText sets secondary text: select items, switch caption, gauge units
func WithText(s string) Option { return func(p *props) { p.text = s } }

// WithIcon sets the LED icon
func WithIcon(s string) Option { return func(p *props) { p.icon = s } }

// WithColor sets the accent color
func WithColor(c Color) Option { return func(p *props) { p.color = c } }

// WithSize sets the font or icon size
func WithSize(n int) Option { return func(p *props) { p.size = n } }

// WithRows sets the display height in text rows
func WithRows(n int) Option { return func(p *props) { p.rows = n } }

// WithRange sets slider, spinner and gauge limits
func WithRange(lo, hi, step float64) Option {
	return func(p *props) {
		p.min = lo
		p.max = hi
		p.step = step
	}
}

// WithMaxLen limits input length
func WithMaxLen(n int) Option { return func(p *props) { p.maxLen = n } }

// WithRegex validates input on the client
func WithRegex(s string) Option { return func(p *props) { p.regex = s } }

// WithAlign sets table column alignment, comma separated
func WithAlign(s string) Option { return func(p *props) { p.align = s } }

// WithWidths sets table column widths, comma separated
func WithWidths(s string) Option { return func(p *props) { p.widths = s } }

// WithAutoCenter makes a joystick spring back to the centre
func WithAutoCenter(v bool) Option { return func(p *props) { p.auto = v } }

// WithExp makes joystick output exponential
func WithExp(v bool) Option { return func(p *props) { p.exp = v } }
