package api

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/gyverhub/internal/firmware"
	"github.com/vitaminmoo/gyverhub/internal/httpd"
	"github.com/vitaminmoo/gyverhub/internal/hub"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/store"
	"github.com/vitaminmoo/gyverhub/internal/transfer"
	"github.com/vitaminmoo/gyverhub/internal/ui"
)

type fixture struct {
	hub     *hub.Hub
	store   *store.Store
	updater *firmware.FileUpdater
	client  *Client
	level   int32
	tab     uint8
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "fs"), 5)
	require.NoError(t, err)
	up := &firmware.FileUpdater{Dir: filepath.Join(t.TempDir(), "images")}
	h := hub.New(hub.Options{
		Prefix:      "myhub",
		ID:          "1a2b3c",
		Name:        "bench",
		Version:     "1.2",
		FetchChunk:  8,
		UploadChunk: 16,
		Store:       st,
		Updater:     up,
	})
	f := &fixture{hub: h, store: st, updater: up}
	h.OnBuild(func(b *ui.Builder) {
		b.Slider(ui.Int32(&f.level), ui.WithLabel("Level"))
		b.Tabs(&f.tab, "a,b")
		b.Label("ready")
	})
	h.Start()
	t.Cleanup(h.Stop)

	srv := httptest.NewServer(httpd.New(h).Handler())
	t.Cleanup(srv.Close)
	f.client = New(srv.URL, "myhub", "1a2b3c")
	return f
}

func TestDiscover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.client.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1a2b3c", d.ID)
	assert.Equal(t, "bench", d.Name)
	assert.Equal(t, 16, d.MaxUpload)
	assert.Empty(t, d.Disabled())

	all, err := f.client.DiscoverAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "1.2", all[0].Version)

	f.client.SetDevice("ffffff")
	_, err = f.client.Discover(ctx)
	assert.ErrorIs(t, err, ErrNoAnswer)
}

func TestPingAndErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.client.Ping(ctx))

	f.hub.DisableModules(protocol.ModReboot)
	err := f.client.Reboot(ctx)
	var de *DeviceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, protocol.ErrTextDisabled, de.Text)
}

func TestAnswerTypeChecked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fr, err := f.client.expect(ctx, "ping", "", protocol.TypeOK)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeOK, fr.Type)

	_, err = f.client.expect(ctx, "ping", "", protocol.TypeInfo, protocol.TypeFSBR)
	var ue *UnexpectedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, protocol.TypeInfo+"|"+protocol.TypeFSBR, ue.Want)
	assert.Equal(t, protocol.TypeOK, ue.Got)

	_, err = f.client.expectValue(ctx, "data", "x", "1", protocol.TypeOK, protocol.TypeData)
	require.NoError(t, err)
}

func TestInfoKeepsOrder(t *testing.T) {
	f := newFixture(t)
	info, err := f.client.GetInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"version", "net", "memory", "system"}, info.Sections)
	require.NotEmpty(t, info.Entries["version"])
	assert.Equal(t, "Library", info.Entries["version"][0].Label)
	assert.Equal(t, hub.LibraryVersion, info.Entries["version"][0].Value)
}

func TestPanelSetRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.client.Focus(ctx)
	require.NoError(t, err)
	require.Len(t, p.Controls, 3)
	w, ok := p.Find("_n0")
	require.True(t, ok)
	assert.Equal(t, "slider", w.Type())
	assert.Equal(t, "Level", w.Label())

	res, err := f.client.Set(ctx, "_n0", "42")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"_n0": "42"}, res.Updates)
	assert.Equal(t, int32(42), f.level)

	v, err := f.client.Read(ctx, "_n0")
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	res, err = f.client.Set(ctx, "_n1", "1")
	require.NoError(t, err)
	require.NotNil(t, res.Panel)
	assert.Equal(t, uint8(1), f.tab)

	_, err = f.client.Read(ctx, "_n9")
	assert.Error(t, err)
}

func TestFetchChunks(t *testing.T) {
	f := newFixture(t)
	abs, _ := f.store.Abs("/logs/today.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
	content := strings.Repeat("0123456789", 3)
	require.NoError(t, os.WriteFile(abs, []byte(content), 0644))

	var out bytes.Buffer
	var steps []int64
	n, err := f.client.Fetch(context.Background(), "/logs/today.txt", &out, func(cur, total int64, _ string) {
		steps = append(steps, cur)
		assert.Equal(t, int64(4), total)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30), n)
	assert.Equal(t, content, out.String())
	assert.Equal(t, []int64{1, 2, 3, 4}, steps)

	_, err = f.client.Fetch(context.Background(), "/missing", &out, nil)
	assert.Error(t, err)
}

func TestUploadChunksAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := []byte(strings.Repeat("abcdefghij", 5))

	var last int64
	require.NoError(t, f.client.Upload(ctx, "/dir/file.bin", data, 16, func(cur, total int64, phase string) {
		last = cur
		assert.Equal(t, "upload", phase)
	}))
	assert.Equal(t, int64(len(data)), last)

	abs, _ := f.store.Abs("/dir/file.bin")
	got, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	l, err := f.client.List(ctx)
	require.NoError(t, err)
	require.Len(t, l.Files, 2)
	assert.Equal(t, FileEntry{Path: "/dir/", Dir: true}, l.Files[0])
	assert.Equal(t, FileEntry{Path: "/dir/file.bin", Size: 50}, l.Files[1])

	l, err = f.client.Rename(ctx, "/dir/file.bin", "/x.bin")
	require.NoError(t, err)
	assert.Equal(t, "/x.bin", l.Files[len(l.Files)-1].Path)

	l, err = f.client.Delete(ctx, "/x.bin")
	require.NoError(t, err)
	assert.Empty(t, l.Files)
}

func TestUploadEmptyFile(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.client.Upload(context.Background(), "/empty", nil, 0, nil))
	abs, _ := f.store.Abs("/empty")
	assert.FileExists(t, abs)
}

func TestOTAChunks(t *testing.T) {
	f := newFixture(t)
	image := bytes.Repeat([]byte{0xAB}, 100)
	require.NoError(t, f.client.OTA(context.Background(), "fs", image, 16, nil))

	got, err := os.ReadFile(f.updater.Path(transfer.TargetFS))
	require.NoError(t, err)
	assert.Equal(t, image, got)

	err = f.client.OTA(context.Background(), "eeprom", image, 16, nil)
	var de *DeviceError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, protocol.ErrTextInvalidType, de.Text)
}

func TestDirectHTTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.client.UploadHTTP(ctx, "/www/index.html", []byte("<p>hi</p>")))
	var out bytes.Buffer
	n, err := f.client.FetchHTTP(ctx, "/www/index.html", &out)
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
	assert.Equal(t, "<p>hi</p>", out.String())

	_, err = f.client.FetchHTTP(ctx, "/nope", &out)
	assert.ErrorContains(t, err, "404")

	require.NoError(t, f.client.OTAHTTP(ctx, "fs", []byte("fsimage")))
	got, err := os.ReadFile(f.updater.Path(transfer.TargetFS))
	require.NoError(t, err)
	assert.Equal(t, "fsimage", string(got))
}

func TestDataAndCLI(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var lines []string
	f.hub.OnCLI(func(text string) { lines = append(lines, text) })
	f.hub.OnData(func(c protocol.Client, name, value string) string {
		if name == "echo" {
			return value
		}
		return ""
	})

	require.NoError(t, f.client.CLI(ctx, "status all"))
	assert.Equal(t, []string{"status all"}, lines)

	out, err := f.client.Data(ctx, "echo", "ping")
	require.NoError(t, err)
	assert.Equal(t, "ping", out)

	out, err = f.client.Data(ctx, "other", "x")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEscapePath(t *testing.T) {
	assert.Equal(t, "p/i/c/rename//a%20b.txt=/dir/c+d.txt", escapePath("p/i/c/rename//a b.txt=/dir/c+d.txt"))
	assert.Equal(t, "p/i/c/upload_chunk/next=aGk=", escapePath("p/i/c/upload_chunk/next=aGk="))
	assert.Equal(t, 150, rawChunk(200))
	assert.Equal(t, 3, rawChunk(2))
}
