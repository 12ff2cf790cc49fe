package protocol

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPINHash(t *testing.T) {
	// "1234": ((49*31+50)*31+51)*31+52
	assert.Equal(t, uint32(1509442), PINHash(1234))
	assert.Equal(t, PINHash(1234), PINHash(1234))
	assert.NotEqual(t, PINHash(1234), PINHash(4321))
	assert.Zero(t, PINHash(0))
	assert.Zero(t, PINHash(999))
	assert.NotZero(t, PINHash(1000))
}

func TestPINHashWraps(t *testing.T) {
	var h uint32
	for _, c := range []byte("4294967295") {
		h = h*31 + uint32(c)
	}
	assert.Equal(t, h, PINHash(4294967295))
}

func TestDeviceID(t *testing.T) {
	assert.Equal(t, "100000", DeviceID(0))
	assert.Equal(t, "10abcd", DeviceID(0xabcd))
	assert.Equal(t, "200000", DeviceID(0x100000))
	assert.Equal(t, "1a2b3c", DeviceID(0x1a2b3c))

	mac := net.HardwareAddr{0x00, 0x11, 0x3c, 0x2b, 0x1a, 0x00}
	assert.Equal(t, "1a2b3c", MACDeviceID(mac))
	assert.Equal(t, "100000", MACDeviceID(nil))
}

func TestLookupCommandTable(t *testing.T) {
	cmds := Commands()
	require.Len(t, cmds, 21)
	for _, c := range cmds {
		got, ok := LookupCommand(c.String())
		require.True(t, ok, c.String())
		assert.Equal(t, c, got)
	}

	_, ok := LookupCommand("explode")
	assert.False(t, ok)
	_, ok = LookupCommand("")
	assert.False(t, ok)

	assert.Equal(t, Command(20), CmdRead)
	assert.Equal(t, Command(0xF000), CmdHTTPFetch)
	assert.Equal(t, "http_upload", CmdHTTPUpload.String())
}

func TestCommandPathLen(t *testing.T) {
	for _, c := range []Command{CmdFocus, CmdPing, CmdUnfocus, CmdInfo, CmdFSBR, CmdFormat, CmdReboot, CmdRead} {
		assert.Equal(t, 4, c.PathLen(), c.String())
	}
	for _, c := range []Command{CmdData, CmdSet, CmdCLI, CmdDelete, CmdRename, CmdFetch, CmdFetchChunk, CmdFetchStop,
		CmdUpload, CmdUploadChunk, CmdOTA, CmdOTAChunk, CmdOTAURL} {
		assert.Equal(t, 5, c.PathLen(), c.String())
	}
}

func TestSplitPath(t *testing.T) {
	p := SplitPath("myhub/1a2b3c/client1/fetch//dir/file.txt")
	assert.Equal(t, 5, p.Len)
	assert.Equal(t, "myhub", p.Prefix)
	assert.Equal(t, "1a2b3c", p.Device)
	assert.Equal(t, "client1", p.Client)
	assert.Equal(t, "fetch", p.Verb)
	assert.Equal(t, "/dir/file.txt", p.Name)

	p = SplitPath("myhub/1a2b3c")
	assert.Equal(t, 2, p.Len)
	assert.Empty(t, p.Client)

	path, value := SplitValue("myhub/1a2b3c/c/upload_chunk/next=aGk=")
	assert.Equal(t, "myhub/1a2b3c/c/upload_chunk/next", path)
	assert.Equal(t, "aGk=", value)

	path, value = SplitValue("myhub/1a2b3c/c/ping")
	assert.Equal(t, "myhub/1a2b3c/c/ping", path)
	assert.Empty(t, value)
}

func TestNewClientTruncates(t *testing.T) {
	c := NewClient(ConnWebsocket, "0123456789")
	assert.Equal(t, "01234567", c.ID)
	assert.Equal(t, c, NewClient(ConnWebsocket, "01234567"))
	assert.NotEqual(t, c, NewClient(ConnHTTP, "01234567"))
}

func TestModuleMask(t *testing.T) {
	var m ModuleMask
	assert.True(t, m.Enabled(ModOTA))
	assert.Zero(t, m.Disabled())

	m.Unset(ModOTA | ModUpload)
	assert.False(t, m.Enabled(ModOTA))
	assert.False(t, m.Enabled(ModUpload))
	assert.True(t, m.Enabled(ModFetch))
	assert.Equal(t, ModOTA|ModUpload, m.Disabled())

	m.Set(ModOTA)
	assert.True(t, m.Enabled(ModOTA))

	mods, err := ParseModules([]string{"ota", " MQTT ", ""})
	require.NoError(t, err)
	assert.Equal(t, ModOTA|ModMQTT, mods)
	assert.Equal(t, []string{"mqtt", "ota"}, mods.Names())

	_, err = ParseModules([]string{"warp"})
	assert.Error(t, err)

	assert.Equal(t, ModWS, ConnModule(ConnWebsocket))
	assert.Equal(t, ModFetch, CommandModule(CmdFetchChunk))
	assert.Zero(t, CommandModule(CmdPing))
}

func TestEnvelope(t *testing.T) {
	e := NewEnvelope("1a2b3c", TypeNotice)
	e.Str("text", `say "hi" <b>`)
	e.Int("color", 0x37A93C)
	e.Nested("updates", func(o *Object) {
		o.Str("_n0", "42")
	})
	got := string(e.Bytes())
	assert.Equal(t, "\n{\"id\":\"1a2b3c\",\"type\":\"notice\",\"text\":\"say \\\"hi\\\" <b>\",\"color\":3647804,\"updates\":{\"_n0\":\"42\"}}\n", got)

	frames, err := DecodeFrames([]byte(got + errorFrameString("1a2b3c", ErrTextForbidden)))
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, TypeNotice, frames[0].Type)
	var updates map[string]string
	require.NoError(t, frames[0].Field("updates", &updates))
	assert.Equal(t, "42", updates["_n0"])
	assert.Equal(t, TypeErr, frames[1].Type)
	assert.Equal(t, ErrTextForbidden, frames[1].Text)
}

func errorFrameString(id, text string) string {
	return string(ErrorFrame(id, text))
}

func TestAppendStringControl(t *testing.T) {
	assert.Equal(t, `"a\nb\u0001\\"`, string(AppendString(nil, "a\nb\x01\\")))
	assert.Equal(t, `"привет"`, string(AppendString(nil, "привет")))
}
