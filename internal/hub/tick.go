package hub

import (
	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

// Tick ages the focus table, drops idle transfer sessions and hands a
// pending reboot to the reboot handler. Call it often; Run does so every
// TickInterval.
func (h *Hub) Tick() {
	if !h.running.Load() {
		return
	}
	h.mu.Lock()
	defer h.unlock()

	now := h.opts.Clock.Millis()
	if elapsed := (now - h.lastSecond) / 1000; elapsed > 0 {
		h.lastSecond += elapsed * 1000
		for i := range h.focus {
			if v := h.focus[i].Load(); v > 0 {
				if v > elapsed {
					h.focus[i].Store(v - elapsed)
				} else {
					h.focus[i].Store(0)
				}
			}
		}
	}

	timeout := uint32(h.opts.ConnTimeout.Milliseconds())
	if h.ota.Expired(now, timeout) {
		owner := h.ota.Owner()
		h.ota.Abort()
		h.log.WithField("client", owner).Info("update timed out")
		h.emit(protocol.EventOTAAborted, owner.From)
	}
	if h.upload.Expired(now, timeout) {
		owner := h.upload.Owner()
		h.upload.Abort()
		h.log.WithField("client", owner).Info("upload timed out")
		h.emit(protocol.EventUploadAborted, owner.From)
	}
	if h.fetch.Expired(now, timeout) {
		owner := h.fetch.Owner()
		h.fetch.Stop()
		h.log.WithField("client", owner).Info("fetch timed out")
		h.emit(protocol.EventFetchAborted, owner.From)
	}

	if h.reboot != protocol.RebootNone {
		reason := h.reboot
		h.reboot = protocol.RebootNone
		h.log.WithField("reason", reason).Info("reboot requested")
		if h.onReboot != nil {
			h.onReboot(reason)
		}
	}
}

// Session is the progress of one transfer slot
type Session struct {
	Active bool
	Owner  protocol.Client
	Path   string
	Done   int64
	Total  int64
}

// Status is a point in time view of the hub for monitors
type Status struct {
	ID      string
	Name    string
	Prefix  string
	Running bool
	OTAURL  bool
	Focus   [protocol.ConnCount]uint32
	Fetch   Session
	Upload  Session
	OTA     Session
}

// Status snapshots the focus table and transfer sessions
func (h *Hub) Status() Status {
	h.mu.Lock()
	defer h.unlock()

	st := Status{
		ID:      h.opts.ID,
		Name:    h.opts.Name,
		Prefix:  h.opts.Prefix,
		Running: h.running.Load(),
		OTAURL:  h.otaURL.Load(),
	}
	for i := range h.focus {
		st.Focus[i] = h.focus[i].Load()
	}

	if h.fetch.Active() {
		sent, amount := h.fetch.Progress()
		st.Fetch = Session{Active: true, Owner: h.fetch.Owner(), Path: h.fetch.Path(), Done: int64(sent), Total: int64(amount)}
	}
	if h.upload.Active() {
		n, _ := h.upload.Progress()
		st.Upload = Session{Active: true, Owner: h.upload.Owner(), Path: h.upload.Path(), Done: n}
	}
	if h.ota.Active() {
		n, _ := h.ota.Progress()
		st.OTA = Session{Active: true, Owner: h.ota.Owner(), Path: h.ota.Target().String(), Done: n}
	}
	return st
}
