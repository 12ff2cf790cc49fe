package ui

// Button holds the last state a client sent for a button widget
type Button struct {
	state uint8
}

// Held is true between press and release
func (b Button) Held() bool {
	return b.state == 1
}

// Clicked is true after a short press
func (b Button) Clicked() bool {
	return b.state == 2
}
