package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/gyverhub/internal/config"
	"github.com/vitaminmoo/gyverhub/internal/hub"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/ui"
)

type doneToken struct {
	err error
}

func (doneToken) Wait() bool { return true }

func (doneToken) WaitTimeout(time.Duration) bool { return true }

func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t doneToken) Error() error { return t.err }

type message struct {
	topic    string
	retained bool
	payload  string
}

type fakeBroker struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, message{topic: topic, retained: retained, payload: string(payload.([]byte))})
	return doneToken{err: b.err}
}

func (b *fakeBroker) take() []message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.msgs
	b.msgs = nil
	return out
}

func setup(t *testing.T) (*hub.Hub, *Transport, *fakeBroker) {
	t.Helper()
	h := hub.New(hub.Options{Prefix: "myhub", ID: "1a2b3c", Name: "dev"})
	b := &fakeBroker{}
	tr := newTransport(h, Options{Prefix: "myhub", ID: "1a2b3c", Config: config.MQTTConfig{Retain: true}}, b)
	h.AddTransport(tr)
	h.Start()
	t.Cleanup(h.Stop)
	return h, tr, b
}

func TestSubscriptions(t *testing.T) {
	_, tr, _ := setup(t)
	assert.Equal(t, []string{"myhub", "myhub/1a2b3c/#"}, tr.Subscriptions())
	assert.Equal(t, protocol.ConnMQTT, tr.Conn())
}

func TestStartPublishesOnline(t *testing.T) {
	h := hub.New(hub.Options{Prefix: "myhub", ID: "1a2b3c"})
	b := &fakeBroker{}
	h.AddTransport(newTransport(h, Options{Prefix: "myhub", ID: "1a2b3c"}, b))
	h.Start()
	h.TurnOff()

	msgs := b.take()
	require.Len(t, msgs, 2)
	assert.Equal(t, message{topic: "myhub/hub/1a2b3c/status", retained: true, payload: "online"}, msgs[0])
	assert.Equal(t, "offline", msgs[1].payload)
}

func TestDiscoverAllAnswersOnClientTopic(t *testing.T) {
	_, tr, b := setup(t)
	b.take()

	tr.Handle("myhub", []byte("web1"))
	msgs := b.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, "myhub/hub/web1/1a2b3c", msgs[0].topic)
	assert.False(t, msgs[0].retained)

	frames, err := protocol.DecodeFrames([]byte(msgs[0].payload))
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeDiscover, frames[0].Type)
}

func TestCommandAnswer(t *testing.T) {
	_, tr, b := setup(t)
	b.take()

	tr.Handle("myhub/1a2b3c/web1/ping", nil)
	msgs := b.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, "myhub/hub/web1/1a2b3c", msgs[0].topic)
	assert.Contains(t, msgs[0].payload, `"type":"OK"`)
}

func TestBrokerHooks(t *testing.T) {
	h, tr, b := setup(t)
	var level int32 = 7
	h.OnBuild(func(bl *ui.Builder) {
		bl.Slider(ui.Int32(&level))
	})
	h.SetAutoGet(true)
	b.take()

	tr.Handle("myhub/1a2b3c/_n0/read", nil)
	msgs := b.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, message{topic: "myhub/hub/1a2b3c/get/_n0", retained: true, payload: "7"}, msgs[0])

	tr.Handle("myhub/1a2b3c/_n0/set", []byte("42"))
	assert.Equal(t, int32(42), level)
	var gets []message
	for _, m := range b.take() {
		if m.topic == "myhub/hub/1a2b3c/get/_n0" {
			gets = append(gets, m)
		}
	}
	require.Len(t, gets, 1)
	assert.Equal(t, "42", gets[0].payload)
}

func TestPushIsBroadcast(t *testing.T) {
	h, _, b := setup(t)
	b.take()

	h.SendPush("door open")
	msgs := b.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, "myhub/hub/1a2b3c", msgs[0].topic)
	assert.True(t, msgs[0].retained)
	assert.Contains(t, msgs[0].payload, "door open")
}

func TestPublishError(t *testing.T) {
	_, tr, b := setup(t)
	b.err = errors.New("not connected")
	assert.Error(t, tr.Broadcast([]byte("x")))
	assert.Error(t, tr.PublishGet("a", "b"))
}

func TestClientID(t *testing.T) {
	id := ClientID()
	assert.Len(t, id, 20)
	assert.NotEqual(t, id, ClientID())
}
