package hub

import (
	"bytes"
	"errors"
	"io"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/store"
)

// ErrRefused is returned by the direct HTTP helpers when the module is off
// or the request hook says no
var ErrRefused = errors.New("request refused")

// Allow runs the module and request hook checks for the HTTP endpoints
// that bypass the command path parser
func (h *Hub) Allow(c protocol.Client, name string, cmd protocol.Command) bool {
	if !h.running.Load() || h.otaURL.Load() {
		return false
	}
	h.mu.Lock()
	defer h.unlock()
	if !h.modules.Enabled(protocol.ModHTTP) {
		return false
	}
	if mod := protocol.CommandModule(cmd); mod != 0 && !h.modules.Enabled(mod) {
		return false
	}
	return h.onRequest == nil || h.onRequest(name, "", c, cmd)
}

// Store is the device filesystem, nil when none is mounted
func (h *Hub) Store() *store.Store {
	return h.store
}

// OpenFetch opens path the way the fetch command does, hook first. The
// returned func must be called once the data has been sent.
func (h *Hub) OpenFetch(c protocol.Client, path string) (io.Reader, int64, func(), error) {
	if !h.Allow(c, path, protocol.CmdHTTPFetch) {
		return nil, 0, nil, ErrRefused
	}
	h.mu.Lock()
	src := h.openSource(path)
	onEnd := h.onFetchEnd
	h.unlock()
	if src == nil {
		return nil, 0, nil, store.ErrNotMounted
	}

	var r io.Reader = src.Reader
	if src.Data != nil {
		r = bytes.NewReader(src.Data)
	}
	done := func() {
		if cl, ok := src.Reader.(io.Closer); ok {
			cl.Close()
		}
		if onEnd != nil {
			onEnd(path)
		}
		h.emit(protocol.EventFetchFinish, c.From)
	}
	h.emit(protocol.EventFetch, c.From)
	return r, src.Size, done, nil
}

// SaveUpload writes r to path in the store, creating parent directories
func (h *Hub) SaveUpload(c protocol.Client, path string, r io.Reader) error {
	if !h.Allow(c, path, protocol.CmdHTTPUpload) {
		return ErrRefused
	}
	w, err := h.store.Create(path)
	if err != nil {
		h.emit(protocol.EventUploadError, c.From)
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		h.store.Remove(path)
		h.emit(protocol.EventUploadError, c.From)
		return err
	}
	if err := w.Close(); err != nil {
		h.emit(protocol.EventUploadError, c.From)
		return err
	}
	h.emit(protocol.EventUploadFinish, c.From)
	return nil
}

// UpdateFirmware applies a whole image received over HTTP
func (h *Hub) UpdateFirmware(c protocol.Client, target string, r io.Reader) error {
	if !h.Allow(c, target, protocol.CmdHTTPOTA) {
		return ErrRefused
	}
	return h.RunOTA(c, target, r)
}
