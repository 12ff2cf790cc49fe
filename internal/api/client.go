package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vitaminmoo/gyverhub/internal/config"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

// ErrNoAnswer is returned when the device dropped a command
var ErrNoAnswer = errors.New("no answer from device")

// DeviceError is an ERR answer
type DeviceError struct {
	Text string
}

func (e *DeviceError) Error() string {
	return "device error: " + e.Text
}

// UnexpectedError is an answer of the wrong type
type UnexpectedError struct {
	Want string
	Got  string
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("expected %s answer, got %s", e.Want, e.Got)
}

// Client talks to one hub over its HTTP transport.
// It wraps command paths and provides typed methods for each verb.
type Client struct {
	base     string
	prefix   string
	id       string
	clientID string
	http     *http.Client
}

// New creates a client for the device id under prefix at base, e.g.
// http://192.168.1.7
func New(base, prefix, id string) *Client {
	return &Client{
		base:     strings.TrimSuffix(base, "/"),
		prefix:   prefix,
		id:       id,
		clientID: NewClientID(),
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientID makes a random client id of protocol.MaxClientID hex digits
func NewClientID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:protocol.MaxClientID]
}

// SetTimeout sets the per request timeout
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

// SetClientID overrides the random client id
func (c *Client) SetClientID(id string) {
	c.clientID = protocol.NewClient(protocol.ConnHTTP, id).ID
}

// ClientID is the id the device sees in command paths
func (c *Client) ClientID() string {
	return c.clientID
}

// SetDevice switches to another device on the same host
func (c *Client) SetDevice(id string) {
	c.id = id
}

// Device is the device id the client addresses
func (c *Client) Device() string {
	return c.id
}

// Path builds PREFIX/ID/CLIENT/VERB[/NAME][=VALUE]
func (c *Client) Path(verb, name, value string, withValue bool) string {
	p := c.prefix + "/" + c.id + "/" + c.clientID + "/" + verb
	if name != "" {
		p += "/" + name
	}
	if withValue {
		p += "=" + value
	}
	return p
}

// Raw sends a command path as is and returns every frame of the answer
func (c *Client) Raw(ctx context.Context, path string) ([]protocol.Frame, error) {
	u := c.base + "/hub/" + escapePath(path)
	config.Debugf("GET %s", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read answer: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	config.Debugf("Answer: %s", strings.TrimSpace(string(body)))

	frames, err := protocol.DecodeFrames(body)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, ErrNoAnswer
	}
	return frames, nil
}

// Send runs one verb and returns the first answer frame. ERR answers become
// a *DeviceError.
func (c *Client) Send(ctx context.Context, verb, name string) (*protocol.Frame, error) {
	return c.send(ctx, c.Path(verb, name, "", false))
}

// SendValue is Send with NAME=VALUE
func (c *Client) SendValue(ctx context.Context, verb, name, value string) (*protocol.Frame, error) {
	return c.send(ctx, c.Path(verb, name, value, true))
}

func (c *Client) send(ctx context.Context, path string) (*protocol.Frame, error) {
	frames, err := c.Raw(ctx, path)
	if err != nil {
		return nil, err
	}
	f := frames[0]
	if f.Type == protocol.TypeErr {
		return nil, &DeviceError{Text: f.Text}
	}
	return &f, nil
}

// expect runs verb and checks the answer type
func (c *Client) expect(ctx context.Context, verb, name string, want ...string) (*protocol.Frame, error) {
	f, err := c.Send(ctx, verb, name)
	return checkType(f, err, want)
}

func (c *Client) expectValue(ctx context.Context, verb, name, value string, want ...string) (*protocol.Frame, error) {
	f, err := c.SendValue(ctx, verb, name, value)
	return checkType(f, err, want)
}

func checkType(f *protocol.Frame, err error, want []string) (*protocol.Frame, error) {
	if err != nil {
		return nil, err
	}
	for _, w := range want {
		if f.Type == w {
			return f, nil
		}
	}
	return nil, &UnexpectedError{Want: strings.Join(want, "|"), Got: f.Type}
}

// escapePath escapes each segment, keeping slashes inside the value
func escapePath(p string) string {
	path, value, hasValue := strings.Cut(p, "=")
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	out := strings.Join(segs, "/")
	if hasValue {
		out += "=" + strings.ReplaceAll(url.PathEscape(value), "%2F", "/")
	}
	return out
}
