package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

// Widget is one control of the panel as sent by the device
type Widget map[string]any

// Type is the widget kind
func (w Widget) Type() string {
	s, _ := w["type"].(string)
	return s
}

// Name is the positional or fixed name, empty for decorations
func (w Widget) Name() string {
	s, _ := w["name"].(string)
	return s
}

// Label is the caption, if any
func (w Widget) Label() string {
	s, _ := w["label"].(string)
	return s
}

// Value renders the widget value the way set expects it
func (w Widget) Value() string {
	switch v := w["value"].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprint(v)
	default:
		raw, _ := json.Marshal(v)
		return string(raw)
	}
}

// Panel is the UI answer
type Panel struct {
	Controls []Widget
}

// Find returns the widget called name
func (p *Panel) Find(name string) (Widget, bool) {
	for _, w := range p.Controls {
		if w.Name() == name {
			return w, true
		}
	}
	return nil, false
}

// Focus opens a UI session and returns the panel. Devices without a panel
// answer OK, which gives an empty one.
func (c *Client) Focus(ctx context.Context) (*Panel, error) {
	f, err := c.expect(ctx, "focus", "", protocol.TypeUI, protocol.TypeOK)
	if err != nil {
		return nil, err
	}
	return parsePanel(f)
}

func parsePanel(f *protocol.Frame) (*Panel, error) {
	p := &Panel{}
	if f.Type == protocol.TypeOK {
		return p, nil
	}
	if err := f.Field("controls", &p.Controls); err != nil {
		return nil, fmt.Errorf("failed to parse panel: %w", err)
	}
	return p, nil
}

// SetResult is what the device answered to set
type SetResult struct {
	// Updates holds name to value when the device answered with an update
	Updates map[string]string
	// Panel is set when the write asked for a redraw
	Panel *Panel
}

// Set writes value into the widget called name
func (c *Client) Set(ctx context.Context, name, value string) (*SetResult, error) {
	f, err := c.expectValue(ctx, "set", name, value, protocol.TypeOK, protocol.TypeUpdate, protocol.TypeUI)
	if err != nil {
		return nil, err
	}
	res := &SetResult{}
	switch f.Type {
	case protocol.TypeUpdate:
		if err := f.Field("updates", &res.Updates); err != nil {
			return nil, fmt.Errorf("failed to parse update: %w", err)
		}
	case protocol.TypeUI:
		if res.Panel, err = parsePanel(f); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Read returns the current value of one widget. The read verb only exists
// on broker transports, so this renders the panel and picks the widget.
func (c *Client) Read(ctx context.Context, name string) (string, error) {
	p, err := c.Focus(ctx)
	if err != nil {
		return "", err
	}
	w, ok := p.Find(name)
	if !ok {
		return "", fmt.Errorf("no widget named %s", name)
	}
	return w.Value(), nil
}
