package hub

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vitaminmoo/gyverhub/internal/config"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/store"
	"github.com/vitaminmoo/gyverhub/internal/transfer"
)

// Transport is a connection family the hub can push unsolicited frames to
type Transport interface {
	Conn() protocol.Conn
	// Broadcast sends data to every peer connected through the transport
	Broadcast(data []byte) error
}

// Publisher is implemented by broker transports that expose the get and
// status topics
type Publisher interface {
	PublishGet(name, value string) error
	PublishStatus(online bool) error
}

// Reply receives the answers produced while dispatching one command. It may
// be called more than once when a UI frame is sent in chunks.
type Reply func(data []byte)

// Downloader fetches a firmware image for ota_url
type Downloader interface {
	Download(ctx context.Context, url string, w io.Writer) (int64, string, error)
}

// Clock is a free running millisecond counter. It is allowed to wrap.
type Clock interface {
	Millis() uint32
}

type systemClock struct {
	start time.Time
}

func (c systemClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// Options configures a Hub
type Options struct {
	Prefix  string
	ID      string // hex device id, see protocol.DeviceID
	Name    string
	Icon    string
	Version string
	PIN     uint32

	// Disabled modules. Everything else is enabled.
	Disabled protocol.Module

	ConnTimeout time.Duration
	FetchChunk  int
	UploadChunk int
	// BufferSize > 0 sends UI frames to byte stream transports in pieces of
	// about this size
	BufferSize int
	OTAType    string

	Store      *store.Store
	Updater    transfer.Updater
	Downloader Downloader

	Clock  Clock
	Logger logrus.FieldLogger
}

func (o *Options) setDefaults() {
	if o.Prefix == "" {
		o.Prefix = "MyDevices"
	}
	if o.ID == "" {
		o.ID = protocol.HostDeviceID()
	}
	if o.ConnTimeout <= 0 {
		o.ConnTimeout = 5 * time.Second
	}
	if o.FetchChunk <= 0 {
		o.FetchChunk = 512
	}
	if o.UploadChunk <= 0 {
		o.UploadChunk = 200
	}
	if o.OTAType == "" {
		o.OTAType = "bin"
	}
	if o.Clock == nil {
		o.Clock = systemClock{start: time.Now()}
	}
	if o.Logger == nil {
		o.Logger = config.Log
	}
}
