package ble

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/vitaminmoo/gyverhub/internal/config"
	"github.com/vitaminmoo/gyverhub/internal/hub"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/util"
)

// Dispatcher routes one command line
type Dispatcher interface {
	DispatchURL(from protocol.Conn, url string, reply hub.Reply)
}

// notifier is the TX characteristic. Writing to it notifies subscribers.
type notifier interface {
	Write(p []byte) (int, error)
}

// Transport is the Bluetooth LE link of a hub. Commands arrive as writes to
// RX, possibly split over several writes, and end with a newline. Answers
// are notified on TX in pieces of at most NotifySize bytes.
type Transport struct {
	d          Dispatcher
	log        logrus.FieldLogger
	notifySize int

	rxMu  sync.Mutex
	lines util.LineBuffer

	txMu sync.Mutex
	tx   notifier

	connected atomic.Bool
}

// New creates a transport that feeds d. Call Advertise to expose it.
func New(d Dispatcher, notifySize int) *Transport {
	if notifySize <= 0 {
		notifySize = DefaultNotifySize
	}
	return &Transport{
		d:          d,
		log:        config.Log.WithField("conn", protocol.ConnBluetooth.String()),
		notifySize: notifySize,
	}
}

// Conn implements hub.Transport
func (t *Transport) Conn() protocol.Conn {
	return protocol.ConnBluetooth
}

// Connected reports whether a central is connected
func (t *Transport) Connected() bool {
	return t.connected.Load()
}

// Broadcast implements hub.Transport. Without a connected central the data
// is dropped.
func (t *Transport) Broadcast(data []byte) error {
	if !t.connected.Load() {
		return nil
	}
	return t.notify(data)
}

// Receive handles one RX write
func (t *Transport) Receive(value []byte) {
	if config.Verbose {
		util.Trace(config.Debugf, "ble rx", value)
	}
	t.rxMu.Lock()
	var cmds []string
	t.lines.Feed(value, func(line string) {
		cmds = append(cmds, line)
	})
	t.rxMu.Unlock()

	for _, cmd := range cmds {
		t.d.DispatchURL(protocol.ConnBluetooth, cmd, t.reply)
	}
}

func (t *Transport) reply(data []byte) {
	if err := t.notify(data); err != nil {
		t.log.WithError(err).Warn("failed to notify answer")
	}
}

func (t *Transport) notify(data []byte) error {
	t.txMu.Lock()
	defer t.txMu.Unlock()
	if t.tx == nil {
		return nil
	}
	return util.Split(data, t.notifySize, func(part []byte) error {
		_, err := t.tx.Write(part)
		return err
	})
}

func (t *Transport) setTX(tx notifier) {
	t.txMu.Lock()
	t.tx = tx
	t.txMu.Unlock()
}

func (t *Transport) setConnected(v bool) {
	t.connected.Store(v)
	if !v {
		t.rxMu.Lock()
		t.lines.Reset()
		t.rxMu.Unlock()
	}
}
