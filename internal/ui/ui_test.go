package ui

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

type panel struct {
	level  int32
	name   string
	on     bool
	speed  float32
	tint   Color
	modes  Flags
	tab    uint8
	stick  Point
	button Button
	log    *Log
}

func newPanel() *panel {
	p := &panel{name: `dev "one"`, speed: 1.5, tint: Blue, modes: ParseFlags("0110"), log: NewLog(32)}
	p.log.Println("boot ok")
	return p
}

func (p *panel) build(b *Builder) {
	b.Title("Main")
	b.BeginRow(0)
	b.Slider(Int32(&p.level), WithLabel("Level"), WithRange(0, 255, 5))
	b.Input(String(&p.name), WithLabel("Name"), WithMaxLen(16))
	b.EndRow()
	b.Switch(&p.on, WithColor(Green))
	b.Spinner(Float(&p.speed), WithRange(0, 10, 0.005))
	b.Color(&p.tint)
	b.Flags(&p.modes, WithText("a,b,c,d"))
	b.Tabs(&p.tab, "one,two")
	b.Label("ready")
	b.Gauge(42.5, WithText("%"))
	b.Log(p.log)
	b.Joystick(&p.stick)
	b.Button(&p.button, WithLabel("Go"))
	b.Canvas(100, 50, func(cv *Canvas) {
		cv.Background(Red)
		cv.FillText("hi", 10, 20, 0)
	}, nil)
	b.Space(10)
	b.Menu("home,setup")
}

func TestCountMatchesRender(t *testing.T) {
	p := newPanel()
	env := Env{Client: protocol.NewClient(protocol.ConnWebsocket, "c1")}

	out := Render(p.build, env, nil, 0, nil)
	assert.Equal(t, len(out), Count(p.build, env))

	// rendered list must be a valid JSON array once the trailing comma goes
	list := "[" + strings.TrimSuffix(string(out), ",") + "]"
	var widgets []map[string]any
	require.NoError(t, json.Unmarshal([]byte(list), &widgets), list)
	require.NotEmpty(t, widgets)
	assert.Equal(t, "title", widgets[0]["type"])
	assert.Equal(t, "row_b", widgets[1]["type"])
	assert.Equal(t, "_n0", widgets[2]["name"])
	assert.EqualValues(t, 100, widgets[2]["tab_w"])
	assert.Equal(t, `dev "one"`, widgets[3]["value"])
	assert.Equal(t, "row_e", widgets[4]["type"])
	assert.Nil(t, widgets[4]["tab_w"])
	assert.Equal(t, "_menu", widgets[len(widgets)-1]["name"])
}

func TestRenderSlider(t *testing.T) {
	level := int32(42)
	out := Render(func(b *Builder) {
		b.Slider(Int32(&level))
	}, Env{}, nil, 0, nil)
	assert.Equal(t, `{"type":"slider","name":"_n0","value":42,"label":"","min":0,"max":100,"step":1},`, string(out))
}

func TestRenderChunked(t *testing.T) {
	p := newPanel()
	whole := Render(p.build, Env{}, nil, 0, nil)

	var chunks []string
	tail := Render(p.build, Env{}, nil, 64, func(b []byte) {
		assert.GreaterOrEqual(t, len(b), 64)
		chunks = append(chunks, string(b))
	})
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, string(whole), strings.Join(chunks, "")+string(tail))
}

func TestPositionalCorrelation(t *testing.T) {
	var a, bb, c int32 = 1, 2, 3
	build := func(b *Builder) {
		b.Input(Int32(&a))
		b.Input(Int32(&bb))
		b.Input(Int32(&c))
	}

	matched, refresh := Write(build, Env{}, "_n1", "77")
	assert.True(t, matched)
	assert.False(t, refresh)
	assert.Equal(t, int32(1), a)
	assert.Equal(t, int32(77), bb)
	assert.Equal(t, int32(3), c)

	v, ok := Read(build, Env{}, "_n2")
	assert.True(t, ok)
	assert.Equal(t, "3", v)

	_, ok = Read(build, Env{}, "_n3")
	assert.False(t, ok)
	matched, _ = Write(build, Env{}, "level", "5")
	assert.False(t, matched)
}

func TestUnnamedWidgetsKeepCursor(t *testing.T) {
	var x int32
	build := func(b *Builder) {
		b.Title("t")
		b.JS("alert(1)")
		b.Space(5)
		b.Stream(82)
		b.BeginRow(0)
		b.Spinner(Int32(&x))
		b.EndRow()
	}
	matched, _ := Write(build, Env{}, "_n0", "9")
	assert.True(t, matched)
	assert.Equal(t, int32(9), x)
}

func TestWriteKinds(t *testing.T) {
	p := newPanel()

	Write(p.build, Env{}, "_n2", "1")
	assert.True(t, p.on)

	Write(p.build, Env{}, "_n3", "2.25")
	assert.InDelta(t, 2.25, p.speed, 1e-6)

	Write(p.build, Env{}, "_n4", "3647804")
	assert.Equal(t, Green, p.tint)

	Write(p.build, Env{}, "_n5", "1001")
	assert.Equal(t, "1001", p.modes.String())

	_, refresh := Write(p.build, Env{}, "_n6", "1")
	assert.True(t, refresh)
	assert.Equal(t, uint8(1), p.tab)

	xy := 300<<16 | 200
	Write(p.build, Env{}, "_n10", strconv.Itoa(xy))
	assert.Equal(t, Point{X: 45, Y: -55, Changed: true}, p.stick)
}

func TestButtonClick(t *testing.T) {
	var btn Button
	clicked := false
	build := func(b *Builder) {
		if b.Button(&btn) {
			clicked = true
		}
	}
	Write(build, Env{}, "_n0", "1")
	assert.True(t, btn.Held())
	assert.False(t, clicked)

	Write(build, Env{}, "_n0", "2")
	assert.True(t, btn.Clicked())
	assert.True(t, clicked)
}

func TestMenu(t *testing.T) {
	var menu uint8
	env := Env{Menu: &menu}
	seen := uint8(255)
	build := func(b *Builder) {
		b.Menu("a,b,c")
		seen = b.CurrentMenu()
		b.Label("x")
	}
	matched, refresh := Write(build, env, MenuName, "2")
	assert.True(t, matched)
	assert.True(t, refresh)
	assert.Equal(t, uint8(2), menu)
	assert.Equal(t, uint8(2), seen)

	v, ok := Read(build, env, MenuName)
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	// the menu takes no position
	v, ok = Read(build, env, "_n0")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
}

func TestReadOnlyWidgets(t *testing.T) {
	build := func(b *Builder) {
		b.Label("hello")
		b.Gauge(math.NaN())
		b.LED(true)
	}
	v, _ := Read(build, Env{}, "_n0")
	assert.Equal(t, "hello", v)
	v, _ = Read(build, Env{}, "_n1")
	assert.Equal(t, "0", v)
	v, _ = Read(build, Env{}, "_n2")
	assert.Equal(t, "1", v)

	matched, _ := Write(build, Env{}, "_n0", "bye")
	assert.False(t, matched)
}

func TestVarParse(t *testing.T) {
	var i8 int8
	Int8(&i8).Parse("300")
	assert.Equal(t, int8(44), i8)

	var f float64
	Double(&f).Parse("3.5abc")
	assert.Equal(t, 3.5, f)

	var u uint32
	Uint32(&u).Parse("  -1")
	assert.Equal(t, uint32(math.MaxUint32), u)

	var s string
	v := String(&s)
	v.Parse("x=y")
	assert.Equal(t, "x=y", v.Text())

	assert.Equal(t, "0", Unbound().Text())
	Unbound().Parse("5")

	var nilPtr *int32
	assert.Equal(t, "0", Int32(nilPtr).Text())
	Int32(nilPtr).Parse("5")
}

func TestLogRing(t *testing.T) {
	l := NewLog(8)
	l.Println("hello")
	assert.Equal(t, "hello\n", l.String())

	l.Print("world")
	assert.Equal(t, "world", l.String())

	l.Clear()
	l.Print("a\r\nb")
	assert.Equal(t, "a\nb", l.String())
}

func TestColorAndFlags(t *testing.T) {
	assert.Equal(t, Green, ColorFromHex(0x1237a93c))
	assert.Equal(t, uint32(0xffffffff), Default.Hex())
	assert.Equal(t, RGB(0x37, 0xa9, 0x3c), Green)
	assert.Equal(t, uint8(0xa9), Green.G())
	assert.Equal(t, RGB(255, 0, 0), WithHue(0))

	f := ParseFlags("10x1")
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, "101", f.String())
	assert.True(t, f.Get(0))
	assert.False(t, f.Get(7))
	assert.True(t, f.Flip(1))
	f.Set(0, false)
	assert.Equal(t, "011", f.String())
}

func TestCanvasCommands(t *testing.T) {
	out := Render(func(b *Builder) {
		b.Canvas(10, 10, func(cv *Canvas) {
			cv.Line(0, 0, 5, 5)
		}, &Point{})
	}, Env{}, nil, 0, nil)
	assert.Contains(t, string(out), `"active":1,"value":["34","21:0,0","22:5,5","33"]`)
}
