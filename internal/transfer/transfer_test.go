package transfer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

var (
	alice = protocol.NewClient(protocol.ConnWebsocket, "alice")
	bob   = protocol.NewClient(protocol.ConnWebsocket, "bob")
	// same id as alice on another transport
	aliceMQTT = protocol.NewClient(protocol.ConnMQTT, "alice")
)

type memFile struct {
	bytes.Buffer
	closed bool
	limit  int
}

func (f *memFile) Write(p []byte) (int, error) {
	if f.limit > 0 && f.Len()+len(p) > f.limit {
		n := f.limit - f.Len()
		f.Buffer.Write(p[:n])
		return n, nil
	}
	return f.Buffer.Write(p)
}

func (f *memFile) Close() error {
	f.closed = true
	return nil
}

type memFS struct {
	files   map[string]*memFile
	limit   int
	failing bool
}

func newMemFS() *memFS {
	return &memFS{files: map[string]*memFile{}}
}

func (m *memFS) Create(path string) (io.WriteCloser, error) {
	if m.failing {
		return nil, errors.New("read-only")
	}
	f := &memFile{limit: m.limit}
	m.files[path] = f
	return f, nil
}

func (m *memFS) Remove(path string) error {
	delete(m.files, path)
	return nil
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestParseMarker(t *testing.T) {
	last, err := ParseMarker("last")
	require.NoError(t, err)
	assert.True(t, last)
	last, err = ParseMarker("next")
	require.NoError(t, err)
	assert.False(t, last)
	_, err = ParseMarker("middle")
	assert.ErrorIs(t, err, ErrBadMarker)
}

func TestFetchChunks(t *testing.T) {
	f := NewFetch(4)
	ended := ""
	require.NoError(t, f.Start(alice, "/a.txt", BytesSource([]byte("0123456789")), func(p string) { ended = p }, 0))
	assert.True(t, f.Active())

	_, amount := f.Progress()
	assert.Equal(t, 3, amount)

	var got []string
	for i := 0; i < 3; i++ {
		ch, done, err := f.Next(alice, uint32(i))
		require.NoError(t, err)
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, 3, ch.Amount)
		assert.Equal(t, i == 2, done)
		got = append(got, string(ch.Data))
	}
	assert.Equal(t, []string{"0123", "4567", "89"}, got)
	assert.False(t, f.Active())
	assert.Equal(t, "/a.txt", ended)

	_, _, err := f.Next(alice, 5)
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestFetchSingleFlight(t *testing.T) {
	f := NewFetch(4)
	require.NoError(t, f.Start(alice, "/a", BytesSource([]byte("abcdefgh")), nil, 0))
	_, _, err := f.Next(alice, 1)
	require.NoError(t, err)

	err = f.Start(bob, "/b", BytesSource([]byte("x")), nil, 2)
	assert.ErrorIs(t, err, ErrBusy)
	sent, amount := f.Progress()
	assert.Equal(t, 1, sent)
	assert.Equal(t, 2, amount)
	assert.Equal(t, alice, f.Owner())
	assert.Equal(t, "/a", f.Path())
}

func TestFetchOwnerIsolation(t *testing.T) {
	f := NewFetch(4)
	require.NoError(t, f.Start(alice, "/a", BytesSource([]byte("abcdefgh")), nil, 0))

	_, _, err := f.Next(bob, 1)
	assert.ErrorIs(t, err, ErrNotOwner)
	_, _, err = f.Next(aliceMQTT, 1)
	assert.ErrorIs(t, err, ErrNotOwner)

	sent, _ := f.Progress()
	assert.Zero(t, sent)
	ch, _, err := f.Next(alice, 2)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(ch.Data))
}

func TestFetchReaderClosed(t *testing.T) {
	rc := &closeTracker{Reader: strings.NewReader("hello")}
	f := NewFetch(512)
	require.NoError(t, f.Start(alice, "/h", &Source{Reader: rc, Size: 5}, nil, 0))
	ch, done, err := f.Next(alice, 0)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "hello", string(ch.Data))
	assert.True(t, rc.closed)
}

func TestFetchInvalidSource(t *testing.T) {
	f := NewFetch(4)
	assert.ErrorIs(t, f.Start(alice, "/none", nil, nil, 0), ErrOpen)
	assert.ErrorIs(t, f.Start(alice, "/none", &Source{}, nil, 0), ErrOpen)
	assert.False(t, f.Active())
}

func TestFetchTimeout(t *testing.T) {
	f := NewFetch(4)
	start := uint32(0xFFFFF000)
	require.NoError(t, f.Start(alice, "/a", BytesSource([]byte("abcdefgh")), nil, start))
	// clock wraps between start and check
	assert.False(t, f.Expired(start+4999, 5000))
	assert.True(t, f.Expired(start+5000, 5000))
	assert.True(t, f.Expired(0x00000400, 5000))

	f.Stop()
	assert.False(t, f.Expired(0x00000400, 5000))
	_, _, err := f.Next(alice, 0x400)
	assert.ErrorIs(t, err, ErrNotActive)
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestUploadFlow(t *testing.T) {
	fs := newMemFS()
	u := NewUpload(fs)
	require.NoError(t, u.Start(alice, "/dir/f.txt", 0))

	err := u.Start(bob, "/other", 1)
	assert.ErrorIs(t, err, ErrBusy)

	last, err := u.Chunk(alice, "next", b64("hello "), 1)
	require.NoError(t, err)
	assert.False(t, last)

	_, err = u.Chunk(bob, "next", b64("evil"), 2)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = u.Chunk(alice, "more", b64("x"), 2)
	assert.ErrorIs(t, err, ErrBadMarker)
	assert.True(t, u.Active())

	last, err = u.Chunk(alice, "last", b64("world"), 3)
	require.NoError(t, err)
	assert.True(t, last)
	assert.False(t, u.Active())

	f := fs.files["/dir/f.txt"]
	require.NotNil(t, f)
	assert.Equal(t, "hello world", f.String())
	assert.True(t, f.closed)
	n, chunks := u.Progress()
	assert.Equal(t, int64(11), n)
	assert.Equal(t, 2, chunks)
}

func TestUploadShortWriteRemovesFile(t *testing.T) {
	fs := newMemFS()
	fs.limit = 3
	u := NewUpload(fs)
	require.NoError(t, u.Start(alice, "/f", 0))
	_, err := u.Chunk(alice, "next", b64("toolong"), 1)
	assert.ErrorIs(t, err, ErrShortWrite)
	assert.False(t, u.Active())
	assert.NotContains(t, fs.files, "/f")
}

func TestUploadOpenFailure(t *testing.T) {
	fs := newMemFS()
	fs.failing = true
	u := NewUpload(fs)
	assert.ErrorIs(t, u.Start(alice, "/f", 0), ErrOpen)
	assert.False(t, u.Active())
}

func TestUploadAbortKeepsPartial(t *testing.T) {
	fs := newMemFS()
	u := NewUpload(fs)
	require.NoError(t, u.Start(alice, "/f", 0))
	_, err := u.Chunk(alice, "next", b64("part"), 1)
	require.NoError(t, err)
	assert.True(t, u.Expired(5001, 5000))
	u.Abort()
	assert.False(t, u.Active())
	assert.Equal(t, "part", fs.files["/f"].String())

	_, err = u.Chunk(alice, "last", b64("x"), 6000)
	assert.ErrorIs(t, err, ErrNotActive)
}

type memSink struct {
	bytes.Buffer
	committed bool
	aborted   bool
	failEnd   bool
}

func (s *memSink) Commit() error {
	s.committed = true
	if s.failEnd {
		return errors.New("bad image")
	}
	return nil
}

func (s *memSink) Abort() { s.aborted = true }

type memUpdater struct {
	sinks   []*memSink
	targets []Target
	failEnd bool
}

func (u *memUpdater) Begin(t Target) (Sink, error) {
	s := &memSink{failEnd: u.failEnd}
	u.sinks = append(u.sinks, s)
	u.targets = append(u.targets, t)
	return s, nil
}

func TestOTAFlow(t *testing.T) {
	up := &memUpdater{}
	o := NewOTA(up)

	assert.ErrorIs(t, o.Start(alice, "eeprom", 0), ErrBadTarget)
	assert.False(t, o.Active())

	require.NoError(t, o.Start(alice, "fs", 0))
	assert.ErrorIs(t, o.Start(bob, "flash", 1), ErrBusy)
	assert.Equal(t, TargetFS, o.Target())

	_, err := o.Chunk(alice, "next", b64("IMG"), 1)
	require.NoError(t, err)
	last, err := o.Chunk(alice, "last", b64("END"), 2)
	require.NoError(t, err)
	assert.True(t, last)
	assert.False(t, o.Active())

	require.Len(t, up.sinks, 1)
	assert.Equal(t, "IMGEND", up.sinks[0].String())
	assert.True(t, up.sinks[0].committed)
}

func TestOTACommitFailure(t *testing.T) {
	up := &memUpdater{failEnd: true}
	o := NewOTA(up)
	require.NoError(t, o.Start(alice, "flash", 0))
	last, err := o.Chunk(alice, "last", b64("x"), 1)
	assert.True(t, last)
	assert.Error(t, err)
	assert.False(t, o.Active())
}

func TestOTABadChunkAborts(t *testing.T) {
	up := &memUpdater{}
	o := NewOTA(up)
	require.NoError(t, o.Start(alice, "flash", 0))

	_, err := o.Chunk(bob, "next", b64("x"), 1)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.True(t, o.Active())

	_, err = o.Chunk(alice, "next", "***", 1)
	assert.Error(t, err)
	assert.False(t, o.Active())
	assert.True(t, up.sinks[0].aborted)
}

func TestOTARun(t *testing.T) {
	up := &memUpdater{}
	o := NewOTA(up)
	require.NoError(t, o.Run(alice, "flash", strings.NewReader("whole image"), 0))
	assert.Equal(t, "whole image", up.sinks[0].String())
	assert.False(t, o.Active())

	require.NoError(t, o.Start(bob, "flash", 1))
	assert.ErrorIs(t, o.Run(alice, "flash", strings.NewReader("x"), 2), ErrBusy)
}
