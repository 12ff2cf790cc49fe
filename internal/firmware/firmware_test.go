package firmware

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/gyverhub/internal/transfer"
)

// esp32Image builds a minimal app image with one segment of n bytes
func esp32Image(n int) []byte {
	var buf bytes.Buffer
	hdr := ESP32ImageHeader{Magic: ESP32ImageMagic, SegmentCount: 1, EntryAddr: 0x40080000}
	binary.Write(&buf, binary.LittleEndian, hdr)
	binary.Write(&buf, binary.LittleEndian, uint32(0x3f400020))
	binary.Write(&buf, binary.LittleEndian, uint32(n))
	buf.Write(make([]byte, n))
	return buf.Bytes()
}

func TestParseESP32Image(t *testing.T) {
	img, err := ParseESP32ImageReader(bytes.NewReader(esp32Image(16)))
	require.NoError(t, err)
	require.Len(t, img.Segments, 1)
	assert.Equal(t, uint32(16), img.Segments[0].DataLen)
	assert.Equal(t, int64(ESP32HeaderSize+ESP32SegmentHdrSize), img.Segments[0].FileOffset)
	assert.Equal(t, uint32(0x40080000), img.Header.EntryAddr)

	_, err = ParseESP32ImageReader(bytes.NewReader([]byte("not an image at all, really not")))
	assert.ErrorContains(t, err, "magic")

	truncated := esp32Image(16)
	_, err = ParseESP32ImageReader(bytes.NewReader(truncated[:len(truncated)-4]))
	assert.ErrorContains(t, err, "past end")
}

func TestDownload(t *testing.T) {
	body := bytes.Repeat([]byte("fw"), 40000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fw.bin" {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	var last int64
	d := NewDownloader(false, func(cur, total int64, _ string) { last = cur })

	var out bytes.Buffer
	n, sum, err := d.Download(context.Background(), srv.URL+"/fw.bin", &out)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), n)
	assert.Equal(t, body, out.Bytes())
	want := sha256.Sum256(body)
	assert.Equal(t, hex.EncodeToString(want[:]), sum)
	assert.Equal(t, n, last)

	_, _, err = d.Download(context.Background(), srv.URL+"/missing", &out)
	assert.ErrorContains(t, err, "404")
}

func TestDownloadInsecureTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var out bytes.Buffer
	_, _, err := NewDownloader(false, nil).Download(context.Background(), srv.URL, &out)
	assert.Error(t, err)

	_, _, err = NewDownloader(true, nil).Download(context.Background(), srv.URL, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.String())
}

func TestFileUpdaterCommit(t *testing.T) {
	u := &FileUpdater{Dir: t.TempDir()}
	sink, err := u.Begin(transfer.TargetFS)
	require.NoError(t, err)
	sink.Write([]byte("littlefs"))
	require.NoError(t, sink.Commit())

	data, err := os.ReadFile(u.Path(transfer.TargetFS))
	require.NoError(t, err)
	assert.Equal(t, "littlefs", string(data))

	tmps, _ := filepath.Glob(filepath.Join(u.Dir, "*.tmp"))
	assert.Empty(t, tmps)
}

func TestFileUpdaterGzip(t *testing.T) {
	image := esp32Image(64)
	var zipped bytes.Buffer
	zw := gzip.NewWriter(&zipped)
	zw.Write(image)
	zw.Close()

	u := &FileUpdater{Dir: t.TempDir(), Validate: true}
	sink, err := u.Begin(transfer.TargetFlash)
	require.NoError(t, err)
	sink.Write(zipped.Bytes())
	require.NoError(t, sink.Commit())

	data, err := os.ReadFile(u.Path(transfer.TargetFlash))
	require.NoError(t, err)
	assert.Equal(t, image, data)
}

func TestFileUpdaterRejectsBadFlash(t *testing.T) {
	u := &FileUpdater{Dir: t.TempDir(), Validate: true}
	sink, err := u.Begin(transfer.TargetFlash)
	require.NoError(t, err)
	sink.Write([]byte("garbage garbage garbage garbage"))
	assert.Error(t, sink.Commit())
	assert.NoFileExists(t, u.Path(transfer.TargetFlash))

	sink, err = u.Begin(transfer.TargetFlash)
	require.NoError(t, err)
	assert.ErrorIs(t, sink.Commit(), ErrEmptyImage)
}

func TestFileUpdaterAbort(t *testing.T) {
	u := &FileUpdater{Dir: t.TempDir()}
	sink, err := u.Begin(transfer.TargetFlash)
	require.NoError(t, err)
	sink.Write([]byte("partial"))
	sink.Abort()

	entries, err := os.ReadDir(u.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTransferProgressPercent(t *testing.T) {
	assert.InDelta(t, 0.5, TransferProgress{BytesSent: 5, TotalBytes: 10}.Percent(), 1e-9)
	assert.InDelta(t, 0.25, TransferProgress{ChunksSent: 1, TotalChunks: 4}.Percent(), 1e-9)
	assert.Zero(t, TransferProgress{}.Percent())
}
