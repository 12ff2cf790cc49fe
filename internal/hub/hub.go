// Package hub is the device side of the GyverHub protocol. It routes command
// paths from every transport, keeps the focus table and transfer sessions,
// and answers with JSON frames.
//
// Dispatch and Tick are serialized by a single mutex. The push family
// (SendPush, SendNotice, ...) only reads atomic state so build and data
// callbacks may call it while a dispatch is running.
package hub

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/store"
	"github.com/vitaminmoo/gyverhub/internal/transfer"
	"github.com/vitaminmoo/gyverhub/internal/ui"
)

// LibraryVersion is reported in the info answer
const LibraryVersion = "0.4.2"

// TickInterval is how often Run calls Tick
const TickInterval = 50 * time.Millisecond

// Hub is one device on the GyverHub network
type Hub struct {
	mu   sync.Mutex
	opts Options
	log  logrus.FieldLogger

	pinHash uint32
	modules protocol.ModuleMask

	running atomic.Bool
	otaURL  atomic.Bool
	pushed  atomic.Bool

	autoUpdate atomic.Bool
	autoGet    atomic.Bool

	focus      [protocol.ConnCount]atomic.Uint32
	focusTTL   uint32
	lastSecond uint32

	transports []Transport

	store  *store.Store
	fetch  *transfer.Fetch
	upload *transfer.Upload
	ota    *transfer.OTA

	menu   uint8
	reboot protocol.RebootReason
	start  time.Time

	build      ui.BuildFunc
	onEvent    func(protocol.Event, protocol.Conn)
	onRequest  func(name, value string, c protocol.Client, cmd protocol.Command) bool
	onReboot   func(protocol.RebootReason)
	onInfo     func(*InfoBuilder)
	onCLI      func(text string)
	onData     func(c protocol.Client, name, value string) string
	onFetch    func(path string) *transfer.Source
	onFetchEnd func(path string)
	onManual   func(data []byte, broadcast bool)

	jobsMu sync.Mutex
	jobs   []namesJob
}

// New creates a stopped hub
func New(opts Options) *Hub {
	opts.setDefaults()
	h := &Hub{
		opts:    opts,
		log:     opts.Logger.WithField("id", opts.ID),
		pinHash: protocol.PINHash(opts.PIN),
		store:   opts.Store,
		fetch:   transfer.NewFetch(opts.FetchChunk),
		start:   time.Now(),
	}
	h.modules.Unset(opts.Disabled)
	// fsbr stays on to answer fs_error. OTA depends on the updater only.
	if !h.store.Mounted() {
		h.modules.Unset(protocol.ModFS &^ (protocol.ModFSBR | protocol.ModOTA | protocol.ModOTAURL))
	}
	if h.store.Mounted() {
		h.upload = transfer.NewUpload(h.store)
	} else {
		h.upload = transfer.NewUpload(noFS{})
	}
	if opts.Updater != nil {
		h.ota = transfer.NewOTA(opts.Updater)
	} else {
		h.ota = transfer.NewOTA(noUpdater{})
		h.modules.Unset(protocol.ModOTA)
	}
	if opts.Downloader == nil || opts.Updater == nil {
		h.modules.Unset(protocol.ModOTAURL)
	}

	ttl := uint32(opts.ConnTimeout / time.Second)
	if ttl == 0 {
		ttl = 1
	}
	h.focusTTL = ttl
	h.autoUpdate.Store(true)
	return h
}

// ID is the hex device id
func (h *Hub) ID() string { return h.opts.ID }

// Prefix is the network prefix
func (h *Hub) Prefix() string { return h.opts.Prefix }

// Name is the display name
func (h *Hub) Name() string { return h.opts.Name }

// AddTransport registers a transport for multicast. Call before Start.
func (h *Hub) AddTransport(t Transport) {
	h.mu.Lock()
	defer h.unlock()
	h.transports = append(h.transports, t)
}

// ----- callbacks -----

// OnBuild installs the control panel description
func (h *Hub) OnBuild(fn ui.BuildFunc) {
	h.mu.Lock()
	defer h.unlock()
	h.build = fn
}

// OnEvent receives every dispatcher event
func (h *Hub) OnEvent(fn func(protocol.Event, protocol.Conn)) {
	h.mu.Lock()
	defer h.unlock()
	h.onEvent = fn
}

// OnRequest installs the authorization hook. Returning false answers
// Forbidden before anything else happens.
func (h *Hub) OnRequest(fn func(name, value string, c protocol.Client, cmd protocol.Command) bool) {
	h.mu.Lock()
	defer h.unlock()
	h.onRequest = fn
}

// OnReboot is called from Tick once a reboot is pending
func (h *Hub) OnReboot(fn func(protocol.RebootReason)) {
	h.mu.Lock()
	defer h.unlock()
	h.onReboot = fn
}

// OnInfo adds entries to the info answer, once per section
func (h *Hub) OnInfo(fn func(*InfoBuilder)) {
	h.mu.Lock()
	defer h.unlock()
	h.onInfo = fn
}

// OnCLI receives console input
func (h *Hub) OnCLI(fn func(text string)) {
	h.mu.Lock()
	defer h.unlock()
	h.onCLI = fn
}

// OnData receives data commands. A non-empty result is sent back as a data
// frame instead of OK.
func (h *Hub) OnData(fn func(c protocol.Client, name, value string) string) {
	h.mu.Lock()
	defer h.unlock()
	h.onData = fn
}

// OnFetch may serve a download from memory or a reader. Returning nil falls
// back to the file store. onEnd runs when the download closes.
func (h *Hub) OnFetch(fn func(path string) *transfer.Source, onEnd func(path string)) {
	h.mu.Lock()
	defer h.unlock()
	h.onFetch = fn
	h.onFetchEnd = onEnd
}

// OnManual receives every multicast frame and every answer for ConnManual
func (h *Hub) OnManual(fn func(data []byte, broadcast bool)) {
	h.mu.Lock()
	defer h.unlock()
	h.onManual = fn
}

// ----- modules -----

// EnableModules turns modules on
func (h *Hub) EnableModules(m protocol.Module) {
	h.mu.Lock()
	defer h.unlock()
	h.modules.Set(m)
}

// DisableModules turns modules off
func (h *Hub) DisableModules(m protocol.Module) {
	h.mu.Lock()
	defer h.unlock()
	h.modules.Unset(m)
}

// Modules returns the raw mask of disabled modules
func (h *Hub) Modules() protocol.Module {
	h.mu.Lock()
	defer h.unlock()
	return h.modules.Disabled()
}

// SetAutoUpdate controls whether set answers and multicasts an update
// frame. On by default.
func (h *Hub) SetAutoUpdate(v bool) { h.autoUpdate.Store(v) }

// SetAutoGet controls whether set publishes the new value on the get topic.
// Off by default.
func (h *Hub) SetAutoGet(v bool) { h.autoGet.Store(v) }

// ----- lifecycle -----

// Start begins accepting commands and reports the device online
func (h *Hub) Start() {
	h.mu.Lock()
	h.lastSecond = h.opts.Clock.Millis()
	h.unlock()
	h.running.Store(true)
	h.emit(protocol.EventStart, protocol.ConnSystem)
	h.TurnOn()
}

// Stop reports the device offline and ignores further commands
func (h *Hub) Stop() {
	h.TurnOff()
	h.running.Store(false)
	h.emit(protocol.EventStop, protocol.ConnSystem)
}

// Running reports whether the hub accepts commands
func (h *Hub) Running() bool {
	return h.running.Load()
}

// Run calls Tick until ctx is done
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Tick()
		}
	}
}

// ----- focus -----

// Focused reports whether any transport has a live UI open
func (h *Hub) Focused() bool {
	if !h.running.Load() {
		return false
	}
	for i := range h.focus {
		if h.focus[i].Load() > 0 {
			return true
		}
	}
	return false
}

// FocusedOn reports whether conn has a live UI open
func (h *Hub) FocusedOn(conn protocol.Conn) bool {
	return int(conn) < len(h.focus) && h.focus[conn].Load() > 0
}

func (h *Hub) setFocus(conn protocol.Conn) {
	if int(conn) < len(h.focus) {
		h.focus[conn].Store(h.focusTTL)
	}
}

func (h *Hub) clearFocus(conn protocol.Conn) {
	if int(conn) < len(h.focus) {
		h.focus[conn].Store(0)
	}
}

func (h *Hub) emit(ev protocol.Event, from protocol.Conn) {
	h.log.WithFields(logrus.Fields{"event": ev, "conn": from}).Debug("hub event")
	if h.onEvent != nil {
		h.onEvent(ev, from)
	}
}

type noFS struct{}

func (noFS) Create(string) (io.WriteCloser, error) { return nil, store.ErrNotMounted }
func (noFS) Remove(string) error { return store.ErrNotMounted }

type noUpdater struct{}

func (noUpdater) Begin(transfer.Target) (transfer.Sink, error) {
	return nil, errors.New("firmware updates not supported")
}
