package hub

import (
	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

func (h *Hub) discoverFrame() []byte {
	e := protocol.NewEnvelope(h.opts.ID, protocol.TypeDiscover)
	e.Str("name", h.opts.Name)
	e.Str("icon", h.opts.Icon)
	e.Uint("PIN", uint64(h.pinHash))
	e.Str("version", h.opts.Version)
	e.Int("max_upl", int64(h.opts.UploadChunk))
	e.Str("ota_t", h.opts.OTAType)
	e.Uint("modules", uint64(h.modules.Disabled()))
	return e.Bytes()
}

// fsbrFrame lists the store. It falls back to fs_error when the store is
// gone or cannot be read.
func (h *Hub) fsbrFrame() []byte {
	if !h.store.Mounted() {
		return protocol.TypeFrame(h.opts.ID, protocol.TypeFSError)
	}
	entries, err := h.store.List()
	if err != nil {
		h.log.WithError(err).Warn("listing failed")
		return protocol.TypeFrame(h.opts.ID, protocol.TypeFSError)
	}
	total, used, err := h.store.Usage()
	if err != nil {
		h.log.WithError(err).Debug("usage unavailable")
	}

	e := protocol.NewEnvelope(h.opts.ID, protocol.TypeFSBR)
	e.Nested("fs", func(o *protocol.Object) {
		o.Int("/", 0)
		for _, en := range entries {
			o.Int(en.Path, en.Size)
		}
	})
	e.Uint("total", total)
	e.Uint("used", used)
	return e.Bytes()
}
