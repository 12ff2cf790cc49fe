// Package cli declares the gyverhub command tree parsed by kong.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kong"

	"github.com/vitaminmoo/gyverhub/internal/api"
	"github.com/vitaminmoo/gyverhub/internal/commands"
	"github.com/vitaminmoo/gyverhub/internal/config"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

// CLI is the root command structure for gyverhub.
type CLI struct {
	Verbose bool            `short:"v" help:"Enable verbose debug output"`
	Config  kong.ConfigFlag `short:"c" help:"Load flag defaults from a JSON file"`
	JSON    bool            `help:"Print machine readable output"`

	// Default command - run the device
	Serve ServeCmd `cmd:"" default:"withargs" help:"Run the hub device (default)"`

	Client ClientCmd `cmd:"" help:"Talk to a running hub over HTTP"`
	Browse BrowseCmd `cmd:"" help:"List hubs advertised over mDNS"`
	Ports  PortsCmd  `cmd:"" help:"List serial ports"`
	ID     IDCmd     `cmd:"" name:"id" help:"Print the device id derived from a number or this host"`
	PIN    PINCmd    `cmd:"" name:"pin" help:"Print the hash a PIN is advertised as"`
	Frames FramesCmd `cmd:"" help:"Decode a capture of command paths and answer frames"`
}

// AfterApply applies the global flags before any command runs
func (c *CLI) AfterApply() error {
	config.SetVerbose(c.Verbose)
	return nil
}

// --- Serve ---

type ServeCmd struct {
	config.Config `embed:""`

	TUI     bool `help:"Show the live monitor instead of log lines"`
	NoDemo  bool `help:"Do not attach the demo control panel"`
	AutoGet bool `help:"Push get answers for every changed widget"`
}

func (c *ServeCmd) Run(ctx context.Context) error {
	return serve(ctx, c)
}

// --- Client ---

// ClientCmd holds the connection flags shared by every client subcommand.
// AfterApply binds the configured *api.Client for the subcommand Run methods.
type ClientCmd struct {
	URL      string        `short:"u" help:"Base URL of the hub's HTTP transport" default:"http://localhost" env:"GYVERHUB_URL"`
	Prefix   string        `short:"p" help:"Network prefix" default:"MyDevices" env:"GYVERHUB_PREFIX"`
	Device   string        `short:"d" help:"Device id (empty asks the host which device it serves)" env:"GYVERHUB_DEVICE"`
	ClientID string        `name:"client-id" help:"Client id used in command paths (random when empty)"`
	Timeout  time.Duration `help:"Per request timeout" default:"10s"`

	Discover ClientDiscoverCmd `cmd:"" help:"Describe the device"`
	Ping     ClientPingCmd     `cmd:"" help:"Check the device answers"`
	Info     ClientInfoCmd     `cmd:"" help:"Show the info sections"`
	Files    ClientFilesCmd    `cmd:"" aliases:"fsbr" help:"List the device filesystem"`
	UI       ClientUICmd       `cmd:"" name:"ui" help:"Show the control panel"`
	Set      ClientSetCmd      `cmd:"" help:"Write a widget value"`
	Read     ClientReadCmd     `cmd:"" help:"Read a widget value"`
	CLI      ClientCLICmd      `cmd:"" name:"cli" help:"Send a console line"`
	Data     ClientDataCmd     `cmd:"" help:"Send a data command"`
	Fetch    ClientFetchCmd    `cmd:"" help:"Download a file"`
	Upload   ClientUploadCmd   `cmd:"" help:"Upload a file"`
	Delete   ClientDeleteCmd   `cmd:"" help:"Delete a file"`
	Rename   ClientRenameCmd   `cmd:"" help:"Rename a file"`
	Format   ClientFormatCmd   `cmd:"" help:"Erase the device filesystem"`
	OTA      ClientOTACmd      `cmd:"" name:"ota" help:"Update firmware from a local image"`
	OTAURL   ClientOTAURLCmd   `cmd:"" name:"ota-url" help:"Make the device download and apply an image"`
	Reboot   ClientRebootCmd   `cmd:"" help:"Restart the device"`
	Raw      ClientRawCmd      `cmd:"" help:"Send a raw command path"`
}

func (c *ClientCmd) AfterApply(kctx *kong.Context, ctx context.Context) error {
	cl := api.New(c.URL, c.Prefix, c.Device)
	cl.SetTimeout(c.Timeout)
	if c.ClientID != "" {
		cl.SetClientID(c.ClientID)
	}
	if c.Device == "" {
		devices, err := cl.DiscoverAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to find a device at %s: %w", c.URL, err)
		}
		if len(devices) == 0 {
			return fmt.Errorf("no device under prefix %q at %s", c.Prefix, c.URL)
		}
		cl.SetDevice(devices[0].ID)
		config.Debugf("using device %s", devices[0].ID)
	}
	kctx.Bind(cl)
	return nil
}

type ClientDiscoverCmd struct {
	All bool `help:"Ask every device under the prefix"`
}

func (c *ClientDiscoverCmd) Run(ctx context.Context, cl *api.Client, globals *CLI) error {
	return commands.Discover(ctx, cl, c.All, globals.JSON)
}

type ClientPingCmd struct{}

func (c *ClientPingCmd) Run(ctx context.Context, cl *api.Client) error {
	return commands.Ping(ctx, cl)
}

type ClientInfoCmd struct{}

func (c *ClientInfoCmd) Run(ctx context.Context, cl *api.Client, globals *CLI) error {
	return commands.Info(ctx, cl, globals.JSON)
}

type ClientFilesCmd struct{}

func (c *ClientFilesCmd) Run(ctx context.Context, cl *api.Client, globals *CLI) error {
	return commands.List(ctx, cl, globals.JSON)
}

type ClientUICmd struct{}

func (c *ClientUICmd) Run(ctx context.Context, cl *api.Client, globals *CLI) error {
	return commands.UI(ctx, cl, globals.JSON)
}

type ClientSetCmd struct {
	Name  string `arg:"" help:"Widget name"`
	Value string `arg:"" optional:"" help:"New value"`
}

func (c *ClientSetCmd) Run(ctx context.Context, cl *api.Client, globals *CLI) error {
	return commands.Set(ctx, cl, c.Name, c.Value, globals.JSON)
}

type ClientReadCmd struct {
	Name string `arg:"" help:"Widget name"`
}

func (c *ClientReadCmd) Run(ctx context.Context, cl *api.Client) error {
	return commands.Read(ctx, cl, c.Name)
}

type ClientCLICmd struct {
	Text string `arg:"" help:"Console line"`
}

func (c *ClientCLICmd) Run(ctx context.Context, cl *api.Client) error {
	return commands.CLI(ctx, cl, c.Text)
}

type ClientDataCmd struct {
	Name  string `arg:"" help:"Data name"`
	Value string `arg:"" optional:"" help:"Value sent with it"`
}

func (c *ClientDataCmd) Run(ctx context.Context, cl *api.Client) error {
	return commands.Data(ctx, cl, c.Name, c.Value)
}

type ClientFetchCmd struct {
	File   string `arg:"" help:"Device path"`
	Output string `short:"o" help:"Output file (defaults to the base name)"`
	Direct bool   `help:"Use the HTTP fetch endpoint instead of chunked frames"`
}

func (c *ClientFetchCmd) Run(ctx context.Context, cl *api.Client) error {
	return commands.Fetch(ctx, cl, c.File, c.Output, c.Direct)
}

type ClientUploadCmd struct {
	Input  string `arg:"" help:"Local file" type:"existingfile"`
	Dest   string `arg:"" help:"Device path"`
	Direct bool   `help:"Use the HTTP upload endpoint instead of chunked frames"`
}

func (c *ClientUploadCmd) Run(ctx context.Context, cl *api.Client) error {
	return commands.Upload(ctx, cl, c.Input, c.Dest, c.Direct)
}

type ClientDeleteCmd struct {
	File string `arg:"" help:"Device path"`
}

func (c *ClientDeleteCmd) Run(ctx context.Context, cl *api.Client, globals *CLI) error {
	return commands.Delete(ctx, cl, c.File, globals.JSON)
}

type ClientRenameCmd struct {
	From string `arg:"" help:"Current path"`
	To   string `arg:"" help:"New path"`
}

func (c *ClientRenameCmd) Run(ctx context.Context, cl *api.Client, globals *CLI) error {
	return commands.Rename(ctx, cl, c.From, c.To, globals.JSON)
}

type ClientFormatCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation"`
}

func (c *ClientFormatCmd) Run(ctx context.Context, cl *api.Client) error {
	return commands.Format(ctx, cl, c.Yes)
}

type ClientOTACmd struct {
	File   string `arg:"" help:"Firmware image" type:"existingfile"`
	Target string `help:"Image target" default:"flash" enum:"flash,fs"`
	Direct bool   `help:"Use the HTTP OTA endpoint instead of chunked frames"`
}

func (c *ClientOTACmd) Run(ctx context.Context, cl *api.Client) error {
	return commands.OTA(ctx, cl, c.File, c.Target, c.Direct)
}

type ClientOTAURLCmd struct {
	URL    string `arg:"" help:"Image URL"`
	Target string `help:"Image target" default:"flash" enum:"flash,fs"`
}

func (c *ClientOTAURLCmd) Run(ctx context.Context, cl *api.Client) error {
	return commands.OTAURL(ctx, cl, c.Target, c.URL)
}

type ClientRebootCmd struct{}

func (c *ClientRebootCmd) Run(ctx context.Context, cl *api.Client) error {
	return commands.Reboot(ctx, cl)
}

type ClientRawCmd struct {
	Path string `arg:"" help:"Command path, PREFIX/ID/CLIENT/VERB[/NAME][=VALUE]"`
}

func (c *ClientRawCmd) Run(ctx context.Context, cl *api.Client, globals *CLI) error {
	return commands.Raw(ctx, cl, c.Path, globals.JSON)
}

// --- Local tools ---

type BrowseCmd struct {
	Timeout time.Duration `help:"How long to listen" default:"3s"`
}

func (c *BrowseCmd) Run(ctx context.Context, globals *CLI) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	return commands.Browse(ctx, globals.JSON)
}

type PortsCmd struct{}

func (c *PortsCmd) Run(globals *CLI) error {
	return commands.Ports(globals.JSON)
}

type IDCmd struct {
	Number uint32 `arg:"" optional:"" help:"Numeric id (omit to derive it from this host's MAC address)"`
}

func (c *IDCmd) Run() error {
	if c.Number == 0 {
		fmt.Fprintln(commands.Out, protocol.HostDeviceID())
		return nil
	}
	fmt.Fprintln(commands.Out, protocol.DeviceID(c.Number))
	return nil
}

type PINCmd struct {
	PIN uint32 `arg:"" help:"PIN code"`
}

func (c *PINCmd) Run() error {
	fmt.Fprintln(commands.Out, protocol.PINHash(c.PIN))
	return nil
}

type FramesCmd struct {
	File string `arg:"" help:"Capture file, one command path or JSON frame per line" type:"existingfile"`
}

func (c *FramesCmd) Run() error {
	return commands.Frames(c.File)
}
