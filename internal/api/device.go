package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

// DeviceInfo is the discover answer
type DeviceInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	PIN       uint32 `json:"PIN"`
	Version   string `json:"version"`
	MaxUpload int    `json:"max_upl"`
	OTAType   string `json:"ota_t"`
	// Modules is the mask of disabled modules
	Modules uint32 `json:"modules"`
}

// Disabled lists the names of the disabled modules
func (d *DeviceInfo) Disabled() []string {
	return protocol.Module(d.Modules).Names()
}

func decodeFrame(f *protocol.Frame, v any) error {
	raw, err := json.Marshal(f.Fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Discover asks the addressed device for its description
func (c *Client) Discover(ctx context.Context) (*DeviceInfo, error) {
	frames, err := c.Raw(ctx, c.prefix+"/"+c.id+"="+c.clientID)
	if err != nil {
		return nil, err
	}
	return discoverInfo(&frames[0])
}

// DiscoverAll asks every device under the prefix. Over HTTP that is the one
// device serving the request.
func (c *Client) DiscoverAll(ctx context.Context) ([]DeviceInfo, error) {
	frames, err := c.Raw(ctx, c.prefix+"="+c.clientID)
	if err != nil {
		return nil, err
	}
	var out []DeviceInfo
	for i := range frames {
		d, err := discoverInfo(&frames[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

func discoverInfo(f *protocol.Frame) (*DeviceInfo, error) {
	if f.Type != protocol.TypeDiscover {
		return nil, &UnexpectedError{Want: protocol.TypeDiscover, Got: f.Type}
	}
	var d DeviceInfo
	if err := decodeFrame(f, &d); err != nil {
		return nil, fmt.Errorf("failed to parse discover answer: %w", err)
	}
	return &d, nil
}

// Ping keeps the UI session alive
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Send(ctx, "ping", "")
	return err
}

// Unfocus closes the UI session
func (c *Client) Unfocus(ctx context.Context) error {
	_, err := c.expect(ctx, "unfocus", "", protocol.TypeOK)
	return err
}

// Reboot asks the device to restart
func (c *Client) Reboot(ctx context.Context) error {
	_, err := c.expect(ctx, "reboot", "", protocol.TypeOK)
	return err
}

// InfoEntry is one label of an info section
type InfoEntry struct {
	Label string
	Value string
}

// Info maps section name to its entries, in answer order
type Info struct {
	Sections []string
	Entries  map[string][]InfoEntry
}

// GetInfo fetches the info answer
func (c *Client) GetInfo(ctx context.Context) (*Info, error) {
	f, err := c.expect(ctx, "info", "", protocol.TypeInfo)
	if err != nil {
		return nil, err
	}
	raw, ok := f.Fields["info"]
	if !ok {
		return nil, fmt.Errorf("info answer has no info field")
	}
	return parseInfo(raw)
}

func parseInfo(raw json.RawMessage) (*Info, error) {
	info := &Info{Entries: map[string][]InfoEntry{}}
	sections, err := orderedObject(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse info: %w", err)
	}
	for _, sec := range sections {
		info.Sections = append(info.Sections, sec.key)
		entries, err := orderedObject(sec.value)
		if err != nil {
			return nil, fmt.Errorf("failed to parse info section %s: %w", sec.key, err)
		}
		for _, e := range entries {
			info.Entries[sec.key] = append(info.Entries[sec.key], InfoEntry{Label: e.key, Value: scalar(e.value)})
		}
	}
	return info, nil
}

type member struct {
	key   string
	value json.RawMessage
}

// orderedObject decodes a JSON object keeping member order
func orderedObject(raw json.RawMessage) ([]member, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, member{key: key, value: v})
	}
	return out, nil
}

// scalar renders a JSON value for display, strings unquoted
func scalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// FileEntry is one file or directory of the device filesystem
type FileEntry struct {
	Path string
	Size int64
	Dir  bool
}

// Listing is the fsbr answer
type Listing struct {
	Files []FileEntry
	Total uint64
	Used  uint64
}

// ErrNoFilesystem is returned when the device answers fs_error
var ErrNoFilesystem = fmt.Errorf("device filesystem unavailable")

// List fetches the filesystem listing
func (c *Client) List(ctx context.Context) (*Listing, error) {
	f, err := c.expect(ctx, "fsbr", "", protocol.TypeFSBR, protocol.TypeFSError)
	if err != nil {
		return nil, err
	}
	return parseListing(f)
}

func parseListing(f *protocol.Frame) (*Listing, error) {
	if f.Type == protocol.TypeFSError {
		return nil, ErrNoFilesystem
	}
	var body struct {
		FS    map[string]int64 `json:"fs"`
		Total uint64           `json:"total"`
		Used  uint64           `json:"used"`
	}
	if err := decodeFrame(f, &body); err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}
	l := &Listing{Total: body.Total, Used: body.Used}
	for p, size := range body.FS {
		if p == "/" {
			continue
		}
		l.Files = append(l.Files, FileEntry{Path: p, Size: size, Dir: strings.HasSuffix(p, "/")})
	}
	sort.Slice(l.Files, func(i, j int) bool { return l.Files[i].Path < l.Files[j].Path })
	return l, nil
}

// Format wipes the device filesystem and returns the empty listing
func (c *Client) Format(ctx context.Context) (*Listing, error) {
	f, err := c.expect(ctx, "format", "", protocol.TypeFSBR, protocol.TypeFSError)
	if err != nil {
		return nil, err
	}
	return parseListing(f)
}

// Delete removes a file and returns the new listing
func (c *Client) Delete(ctx context.Context, path string) (*Listing, error) {
	f, err := c.expect(ctx, "delete", path, protocol.TypeFSBR, protocol.TypeFSError)
	if err != nil {
		return nil, err
	}
	return parseListing(f)
}

// Rename moves a file and returns the new listing
func (c *Client) Rename(ctx context.Context, from, to string) (*Listing, error) {
	f, err := c.expectValue(ctx, "rename", from, to, protocol.TypeFSBR, protocol.TypeFSError)
	if err != nil {
		return nil, err
	}
	return parseListing(f)
}

// CLI sends a line to the device console
func (c *Client) CLI(ctx context.Context, text string) error {
	_, err := c.expectValue(ctx, "cli", "cli", text, protocol.TypeOK)
	return err
}

// Data sends a value to the data callback. The answer is either OK or a
// data frame whose text is returned.
func (c *Client) Data(ctx context.Context, name, value string) (string, error) {
	f, err := c.expectValue(ctx, "data", name, value, protocol.TypeOK, protocol.TypeData)
	if err != nil {
		return "", err
	}
	if f.Type == protocol.TypeOK {
		return "", nil
	}
	var data string
	if err := f.Field("data", &data); err != nil {
		return "", err
	}
	return data, nil
}

// OTAURL asks the device to download and apply firmware from url
func (c *Client) OTAURL(ctx context.Context, target, url string) error {
	_, err := c.expectValue(ctx, "ota_url", target, url, protocol.TypeOK)
	return err
}
