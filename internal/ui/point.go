package ui

import "math"

// Point is a position reported by canvas, joystick and dpad widgets
type Point struct {
	X, Y    int
	Changed bool
}

// Distance to another point, rounded down
func (p Point) Distance(o Point) int {
	dx := float64(p.X - o.X)
	dy := float64(p.Y - o.Y)
	return int(math.Sqrt(dx*dx + dy*dy))
}

// InRect reports whether p lies inside the rectangle with corner (x, y)
func (p Point) InRect(x, y, w, h int) bool {
	return p.X >= x && p.X < x+w && p.Y >= y && p.Y < y+h
}

// InCircle reports whether p lies inside the circle centred at c
func (p Point) InCircle(c Point, r int) bool {
	dx := p.X - c.X
	dy := p.Y - c.Y
	return dx*dx+dy*dy <= r*r
}
