package ui

import (
	"strconv"
	"strings"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

// Canvas collects HTML canvas drawing commands. Each command travels as a
// string "code:arg,arg" inside the canvas widget value.
type Canvas struct {
	cmds []string
}

const (
	cvFillStyle = iota
	cvStrokeStyle
	cvShadowColor
	cvShadowBlur
	cvShadowOffsetX
	cvShadowOffsetY
	cvLineWidth
	cvMiterLimit
	cvFont
	cvTextAlign
	cvTextBaseline
	cvLineCap
	cvLineJoin
	cvCompositeOp
	cvGlobalAlpha
	cvScale
	cvRotate
	cvRect
	cvFillRect
	cvStrokeRect
	cvClearRect
	cvMoveTo
	cvLineTo
	cvQuadraticCurveTo
	cvBezierCurveTo
	cvTranslate
	cvArcTo
	cvArc
	cvFillText
	cvStrokeText
	cvDrawImage
	cvRoundRect
	cvFill
	cvStroke
	cvBeginPath
	cvClosePath
	cvClip
	cvSave
	cvRestore
)

func (c *Canvas) command(code int, text *string, args ...float64) {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(code))
	if text != nil || len(args) > 0 {
		sb.WriteByte(':')
	}
	if text != nil {
		sb.WriteByte('\'')
		sb.WriteString(*text)
		sb.WriteByte('\'')
		if len(args) > 0 {
			sb.WriteByte(',')
		}
	}
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(a, 'f', -1, 64))
	}
	c.cmds = append(c.cmds, sb.String())
}

func rgba(c Color, alpha uint8) float64 {
	return float64(uint32(c.Hex()&0xffffff)<<8 | uint32(alpha))
}

// Custom adds a raw command string
func (c *Canvas) Custom(s string) {
	c.cmds = append(c.cmds, s)
}

// Reset drops every queued command
func (c *Canvas) Reset() {
	c.cmds = c.cmds[:0]
}

// Len is the number of queued commands
func (c *Canvas) Len() int {
	return len(c.cmds)
}

func (c *Canvas) FillStyle(col Color, alpha uint8) { c.command(cvFillStyle, nil, rgba(col, alpha)) }
func (c *Canvas) StrokeStyle(col Color, alpha uint8) { c.command(cvStrokeStyle, nil, rgba(col, alpha)) }
func (c *Canvas) ShadowColor(col Color, alpha uint8) { c.command(cvShadowColor, nil, rgba(col, alpha)) }
func (c *Canvas) ShadowBlur(v int) { c.command(cvShadowBlur, nil, float64(v)) }
func (c *Canvas) LineWidth(v int) { c.command(cvLineWidth, nil, float64(v)) }
func (c *Canvas) Font(f string) { c.command(cvFont, &f) }
func (c *Canvas) GlobalAlpha(v float64) { c.command(cvGlobalAlpha, nil, v) }
func (c *Canvas) Rotate(rad float64) { c.command(cvRotate, nil, rad) }
func (c *Canvas) Fill() { c.command(cvFill, nil) }
func (c *Canvas) Stroke() { c.command(cvStroke, nil) }
func (c *Canvas) BeginPath() { c.command(cvBeginPath, nil) }
func (c *Canvas) ClosePath() { c.command(cvClosePath, nil) }
func (c *Canvas) Save() { c.command(cvSave, nil) }
func (c *Canvas) Restore() { c.command(cvRestore, nil) }

func (c *Canvas) Rect(x, y, w, h int) {
	c.command(cvRect, nil, float64(x), float64(y), float64(w), float64(h))
}

func (c *Canvas) FillRect(x, y, w, h int) {
	c.command(cvFillRect, nil, float64(x), float64(y), float64(w), float64(h))
}

func (c *Canvas) StrokeRect(x, y, w, h int) {
	c.command(cvStrokeRect, nil, float64(x), float64(y), float64(w), float64(h))
}

func (c *Canvas) ClearRect(x, y, w, h int) {
	c.command(cvClearRect, nil, float64(x), float64(y), float64(w), float64(h))
}

func (c *Canvas) MoveTo(x, y int) { c.command(cvMoveTo, nil, float64(x), float64(y)) }
func (c *Canvas) LineTo(x, y int) { c.command(cvLineTo, nil, float64(x), float64(y)) }

func (c *Canvas) Translate(x, y int) { c.command(cvTranslate, nil, float64(x), float64(y)) }

// Arc draws a circle segment, angles in radians
func (c *Canvas) Arc(x, y, r int, start, end float64, ccw bool) {
	dir := 0.0
	if ccw {
		dir = 1
	}
	c.command(cvArc, nil, float64(x), float64(y), float64(r), start, end, dir)
}

// FillText draws text, optionally limited to maxWidth pixels
func (c *Canvas) FillText(text string, x, y, maxWidth int) {
	c.command(cvFillText, &text, float64(x), float64(y), float64(maxWidth))
}

func (c *Canvas) StrokeText(text string, x, y, maxWidth int) {
	c.command(cvStrokeText, &text, float64(x), float64(y), float64(maxWidth))
}

// Clear wipes the whole canvas
func (c *Canvas) Clear() {
	c.ClearRect(0, 0, -1, -1)
	c.BeginPath()
}

// Background fills the whole canvas with col
func (c *Canvas) Background(col Color) {
	c.FillStyle(col, 255)
	c.FillRect(0, 0, -1, -1)
}

// Circle draws a stroked and filled circle centred at (x, y)
func (c *Canvas) Circle(x, y, r int) {
	c.BeginPath()
	c.Arc(x, y, r, 0, 2*3.141592653589793, false)
	c.Stroke()
	c.Fill()
}

// Line draws a single segment
func (c *Canvas) Line(x1, y1, x2, y2 int) {
	c.BeginPath()
	c.MoveTo(x1, y1)
	c.LineTo(x2, y2)
	c.Stroke()
}

// appendJSON writes the command list as JSON string members
func (c *Canvas) appendJSON(dst []byte) []byte {
	for i, cmd := range c.cmds {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = protocol.AppendString(dst, cmd)
	}
	return dst
}
