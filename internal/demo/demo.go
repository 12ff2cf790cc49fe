// Package demo is the control panel served by "gyverhub serve" when no other
// firmware is attached. It shows most widget kinds and keeps a console log.
package demo

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vitaminmoo/gyverhub/internal/hub"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/ui"
)

const (
	pageControls uint8 = iota
	pageStatus
)

// Pusher is the part of the hub the panel talks back to
type Pusher interface {
	SendUpdate(name, value string)
	SendNotice(text string, color ui.Color)
	Print(text string, color ui.Color)
}

// Panel holds the state bound to the widgets
type Panel struct {
	mu    sync.Mutex
	push  Pusher
	start time.Time

	page   uint8
	level  int32
	name   string
	on     bool
	tint   ui.Color
	mode   uint8
	tab    uint8
	alarm  uint32
	stick  ui.Point
	btn    ui.Button
	clicks int
	log    *ui.Log
}

// New creates a panel pushing through p
func New(p Pusher) *Panel {
	d := &Panel{
		push:  p,
		start: time.Now(),
		level: 50,
		name:  "GyverHub",
		tint:  ui.Aqua,
		log:   ui.NewLog(512),
	}
	d.log.Println("demo panel ready")
	return d
}

// Attach installs the panel callbacks on h
func (d *Panel) Attach(h *hub.Hub) {
	h.OnBuild(d.Build)
	h.OnCLI(d.CLI)
	h.OnData(d.Data)
	h.OnInfo(d.Info)
}

// Build declares the widgets. The Status page keeps the uptime label as its
// first named widget so Run can update it as _n0.
func (d *Panel) Build(b *ui.Builder) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b.Menu("Controls,Status")
	d.page = b.CurrentMenu()

	if d.page == pageStatus {
		b.Label(d.uptime(), ui.WithLabel("Uptime"))
		b.Gauge(float64(d.level), ui.WithLabel("Level"), ui.WithText("%"))
		b.LED(d.on, ui.WithLabel("Power"), ui.WithColor(d.tint))
		b.Table("clicks,"+strconv.Itoa(d.clicks)+";name,"+d.name, ui.WithAlign("left,right"))
		b.Log(d.log, ui.WithRows(8))
		return
	}

	b.Title("Controls")
	b.BeginRow(0)
	if b.Slider(ui.Int32(&d.level), ui.WithLabel("Level"), ui.WithRange(0, 100, 1)) {
		d.log.Println("level " + strconv.Itoa(int(d.level)))
	}
	if b.Switch(&d.on, ui.WithLabel("Power"), ui.WithColor(ui.Green)) {
		d.log.Println("power " + strconv.FormatBool(d.on))
	}
	b.EndRow()

	b.Input(ui.String(&d.name), ui.WithLabel("Name"), ui.WithMaxLen(24))
	b.Color(&d.tint, ui.WithLabel("Tint"))
	b.Select(&d.mode, ui.WithLabel("Mode"), ui.WithText("off,slow,fast"))
	b.Time(&d.alarm, ui.WithLabel("Alarm"))

	b.Tabs(&d.tab, "stick,canvas")
	if d.tab == 0 {
		b.Joystick(&d.stick, ui.WithAutoCenter(true))
	} else {
		x, y := 50+d.stick.X/5, 50-d.stick.Y/5
		b.Canvas(100, 100, func(cv *ui.Canvas) {
			cv.Background(ui.Gray(32))
			cv.StrokeStyle(ui.Gray(200), 255)
			cv.LineWidth(2)
			cv.StrokeRect(1, 1, 98, 98)
			cv.FillStyle(d.tint, 255)
			cv.Circle(x, y, 8)
		}, nil)
	}

	if b.Button(&d.btn, ui.WithLabel("Ping")) {
		d.clicks++
		d.push.SendNotice("pong #"+strconv.Itoa(d.clicks), ui.Green)
	}
}

// CLI echoes console input into the log and back to the console
func (d *Panel) CLI(text string) {
	d.mu.Lock()
	d.log.Println("> " + text)
	out := text
	switch strings.TrimSpace(text) {
	case "uptime":
		out = d.uptime()
	case "clicks":
		out = strconv.Itoa(d.clicks)
	}
	d.mu.Unlock()
	d.push.Print(out, ui.Default)
}

// Data answers data commands for "uptime" and "level"
func (d *Panel) Data(c protocol.Client, name, value string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch name {
	case "uptime":
		return d.uptime()
	case "level":
		if value != "" {
			ui.Int32(&d.level).Parse(value)
		}
		return strconv.Itoa(int(d.level))
	}
	return ""
}

// Info adds the panel counters to the system section
func (d *Panel) Info(b *hub.InfoBuilder) {
	if b.Group() != hub.InfoSystem {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	b.AddInt("Clicks", int64(d.clicks))
	b.Add("Panel", d.name)
}

// Run pushes the uptime label once a second while the Status page is shown
func (d *Panel) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.mu.Lock()
			page, up := d.page, d.uptime()
			d.mu.Unlock()
			if page == pageStatus {
				d.push.SendUpdate("_n0", up)
			}
		}
	}
}

func (d *Panel) uptime() string {
	return time.Since(d.start).Truncate(time.Second).String()
}
