package cli

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/gyverhub/internal/config"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	var c CLI
	p, err := kong.New(&c, kong.Name("gyverhub"), kong.Exit(func(int) { t.Fatal("exit") }))
	require.NoError(t, err)
	kctx, err := p.Parse(args)
	require.NoError(t, err)
	return &c, kctx
}

func TestServeIsDefault(t *testing.T) {
	c, _ := parse(t, "--http-addr", ":8080", "--disable", "ota,reboot", "--mqtt-host", "broker")
	assert.Equal(t, ":8080", c.Serve.HTTPAddr)
	assert.Equal(t, []string{"ota", "reboot"}, c.Serve.Disable)
	assert.Equal(t, "broker", c.Serve.MQTT.Host)
	assert.Equal(t, 1883, c.Serve.MQTT.Port)
	assert.Equal(t, 5*time.Second, c.Serve.ConnTimeout)
	assert.True(t, c.Serve.MDNS)
}

func TestNoMDNS(t *testing.T) {
	c, _ := parse(t, "serve", "--no-mdns", "--tui")
	assert.False(t, c.Serve.MDNS)
	assert.True(t, c.Serve.TUI)
}

func TestLocalCommands(t *testing.T) {
	_, kctx := parse(t, "pin", "1234")
	assert.Equal(t, "pin <pin>", kctx.Command())
	c, kctx := parse(t, "id", "5")
	assert.True(t, strings.HasPrefix(kctx.Command(), "id"))
	assert.Equal(t, uint32(5), c.ID.Number)
}

func TestHubOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Root = filepath.Join(t.TempDir(), "fs")
	cfg.ID = 0x2a
	cfg.Disable = []string{"ota_url"}

	opts, err := hubOptions(&cfg)
	require.NoError(t, err)
	assert.Equal(t, protocol.DeviceID(0x2a), opts.ID)
	assert.Equal(t, protocol.ModOTAURL, opts.Disabled)
	require.NotNil(t, opts.Store)
	assert.Equal(t, cfg.Root, opts.Store.Root())
	assert.NotNil(t, opts.Updater)
	assert.NotNil(t, opts.Downloader)
}

func TestHubOptionsBadModule(t *testing.T) {
	cfg := config.Default()
	cfg.Disable = []string{"nope"}
	_, err := hubOptions(&cfg)
	assert.Error(t, err)
}
