package ble

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/gyverhub/internal/hub"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

type fakeTX struct {
	writes []string
	err    error
}

func (f *fakeTX) Write(p []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.writes = append(f.writes, string(p))
	return len(p), nil
}

type echo struct {
	urls []string
	from []protocol.Conn
}

func (e *echo) DispatchURL(from protocol.Conn, url string, reply hub.Reply) {
	e.urls = append(e.urls, url)
	e.from = append(e.from, from)
	reply([]byte("answer:" + url))
}

func TestReceiveSplitWrites(t *testing.T) {
	d := &echo{}
	tx := &fakeTX{}
	tr := New(d, 8)
	tr.setTX(tx)

	tr.Receive([]byte("myhub/1a"))
	assert.Empty(t, d.urls)
	tr.Receive([]byte("2b3c\nmyhub\n"))

	require.Equal(t, []string{"myhub/1a2b3c", "myhub"}, d.urls)
	assert.Equal(t, protocol.ConnBluetooth, d.from[0])
	for _, w := range tx.writes {
		assert.LessOrEqual(t, len(w), 8)
	}
	assert.Equal(t, "answer:myhub/1a2b3canswer:myhub", strings.Join(tx.writes, ""))
}

func TestBroadcastNeedsCentral(t *testing.T) {
	tx := &fakeTX{}
	tr := New(&echo{}, 0)
	tr.setTX(tx)
	assert.Equal(t, protocol.ConnBluetooth, tr.Conn())

	require.NoError(t, tr.Broadcast([]byte("push")))
	assert.Empty(t, tx.writes)

	tr.setConnected(true)
	require.NoError(t, tr.Broadcast([]byte("push")))
	assert.Equal(t, []string{"push"}, tx.writes)

	tx.err = errors.New("gone")
	assert.Error(t, tr.Broadcast([]byte("push")))
}

func TestDisconnectDropsPartialLine(t *testing.T) {
	d := &echo{}
	tr := New(d, 0)
	tr.setTX(&fakeTX{})
	tr.setConnected(true)
	tr.Receive([]byte("half"))
	tr.setConnected(false)
	tr.Receive([]byte("myhub\n"))
	assert.Equal(t, []string{"myhub"}, d.urls)
}

func TestHubOverBluetooth(t *testing.T) {
	h := hub.New(hub.Options{Prefix: "myhub", ID: "1a2b3c", Name: "dev"})
	h.Start()
	defer h.Stop()

	tx := &fakeTX{}
	tr := New(h, 0)
	tr.setTX(tx)
	h.AddTransport(tr)

	tr.Receive([]byte("myhub/1a2b3c/c1/ping\n"))
	frames, err := protocol.DecodeFrames([]byte(strings.Join(tx.writes, "")))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.TypeOK, frames[0].Type)
	assert.Equal(t, "1a2b3c", frames[0].ID)
}
