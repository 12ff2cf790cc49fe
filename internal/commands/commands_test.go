package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/gyverhub/internal/api"
	"github.com/vitaminmoo/gyverhub/internal/httpd"
	"github.com/vitaminmoo/gyverhub/internal/hub"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/store"
	"github.com/vitaminmoo/gyverhub/internal/ui"
)

type bench struct {
	client *api.Client
	store  *store.Store
	out    *bytes.Buffer
	level  int32
}

func newBench(t *testing.T) *bench {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "fs"), 5)
	require.NoError(t, err)
	h := hub.New(hub.Options{
		Prefix:      "myhub",
		ID:          "beef01",
		Name:        "bench",
		FetchChunk:  8,
		UploadChunk: 16,
		Store:       st,
	})
	b := &bench{store: st, out: &bytes.Buffer{}}
	h.OnBuild(func(ub *ui.Builder) {
		ub.Slider(ui.Int32(&b.level), ui.WithLabel("Level"))
	})
	h.OnData(func(_ protocol.Client, name, value string) string {
		return strings.ToUpper(value)
	})
	h.Start()
	t.Cleanup(h.Stop)

	srv := httptest.NewServer(httpd.New(h).Handler())
	t.Cleanup(srv.Close)
	b.client = api.New(srv.URL, "myhub", "beef01")

	prev := Out
	Out = b.out
	t.Cleanup(func() { Out = prev })
	return b
}

func TestDiscoverText(t *testing.T) {
	b := newBench(t)
	require.NoError(t, Discover(context.Background(), b.client, false, false))
	out := b.out.String()
	assert.Contains(t, out, "beef01  bench")
	assert.Contains(t, out, "PIN:        off")
	assert.Contains(t, out, "Disabled:   ota, ota_url")
}

func TestDiscoverJSON(t *testing.T) {
	b := newBench(t)
	require.NoError(t, Discover(context.Background(), b.client, true, true))
	assert.Contains(t, b.out.String(), `"max_upl": 16`)
}

func TestInfoSections(t *testing.T) {
	b := newBench(t)
	require.NoError(t, Info(context.Background(), b.client, false))
	out := b.out.String()
	assert.True(t, strings.HasPrefix(out, "version:\n"))
	assert.Contains(t, out, "system:")
}

func TestFileRoundTrip(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()
	dir := t.TempDir()

	src := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("twenty-four bytes of txt"), 0o644))
	require.NoError(t, Upload(ctx, b.client, src, "/docs/notes.txt", false))
	assert.Contains(t, b.out.String(), "Upload OK")

	b.out.Reset()
	require.NoError(t, List(ctx, b.client, false))
	assert.Contains(t, b.out.String(), "/docs/notes.txt")

	dst := filepath.Join(dir, "copy.txt")
	require.NoError(t, Fetch(ctx, b.client, "/docs/notes.txt", dst, false))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "twenty-four bytes of txt", string(got))

	direct := filepath.Join(dir, "direct.txt")
	require.NoError(t, Fetch(ctx, b.client, "/docs/notes.txt", direct, true))
	got, err = os.ReadFile(direct)
	require.NoError(t, err)
	assert.Equal(t, "twenty-four bytes of txt", string(got))

	b.out.Reset()
	require.NoError(t, Rename(ctx, b.client, "/docs/notes.txt", "/n.txt", false))
	assert.Contains(t, b.out.String(), "/n.txt")
	assert.NotContains(t, b.out.String(), "/docs/")
}

func TestFetchMissingRemovesOutput(t *testing.T) {
	b := newBench(t)
	dst := filepath.Join(t.TempDir(), "none")
	assert.Error(t, Fetch(context.Background(), b.client, "/none", dst, false))
	assert.NoFileExists(t, dst)
}

func TestFormatNeedsConfirmation(t *testing.T) {
	b := newBench(t)
	w, err := b.store.Create("/keep")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	prev := In
	In = strings.NewReader("no\n")
	t.Cleanup(func() { In = prev })

	require.NoError(t, Format(context.Background(), b.client, false))
	assert.Contains(t, b.out.String(), "Aborted")
	entries, err := b.store.List()
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestSetAndData(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()

	require.NoError(t, Set(ctx, b.client, "_n0", "33", false))
	assert.Equal(t, int32(33), b.level)
	assert.Contains(t, b.out.String(), "_n0 = 33")

	b.out.Reset()
	require.NoError(t, Data(ctx, b.client, "x", "shout"))
	assert.Equal(t, "SHOUT\n", b.out.String())
}

func TestFramesCapture(t *testing.T) {
	b := newBench(t)
	capture := filepath.Join(t.TempDir(), "cap.log")
	lines := strings.Join([]string{
		"REQ\tmyhub/beef01/c1/ping",
		`RSP` + "\t" + `{"id":"beef01","type":"OK"}`,
		"RSP\t{broken",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(capture, []byte(lines), 0o644))

	require.NoError(t, Frames(capture))
	out := b.out.String()
	assert.Contains(t, out, "Line 1 [REQ]: ping")
	assert.Contains(t, out, "Line 2 [RSP] [OK] id=beef01:")
	assert.Contains(t, out, "Success: 2")
	assert.Contains(t, out, "Failed: 1")
}

func TestFormatInfoValue(t *testing.T) {
	assert.Equal(t, "1.0 KiB / 4.0 KiB (25%)", formatInfoValue("[1024,4096]"))
	assert.Equal(t, "esp", formatInfoValue("esp"))
	assert.Equal(t, "[a,b]", formatInfoValue("[a,b]"))
}
