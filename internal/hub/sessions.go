package hub

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"time"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/transfer"
)

// OTAURLTimeout bounds a firmware download started by ota_url
const OTAURLTimeout = 10 * time.Minute

// ----- filesystem -----

func (h *Hub) format(c *call) {
	if err := h.store.Format(); err != nil {
		c.log.WithError(err).Warn("format failed")
	}
	h.answer(c, h.fsbrFrame())
}

func (h *Hub) delete(c *call, name string) {
	if err := h.store.Remove(name); err != nil {
		c.log.WithError(err).Warn("delete failed")
	}
	h.answer(c, h.fsbrFrame())
	h.emit(protocol.EventDelete, c.client.From)
}

func (h *Hub) rename(c *call, name, to string) {
	if err := h.store.Rename(name, to); err != nil {
		c.log.WithError(err).Warn("rename failed")
	} else {
		h.answer(c, h.fsbrFrame())
	}
	h.emit(protocol.EventRename, c.client.From)
}

// ----- fetch -----

// openSource asks the fetch hook first and falls back to the store
func (h *Hub) openSource(path string) *transfer.Source {
	if h.onFetch != nil {
		if src := h.onFetch(path); src != nil {
			return src
		}
	}
	f, size, err := h.store.Open(path)
	if err != nil {
		return nil
	}
	return &transfer.Source{Reader: f, Size: size}
}

func (h *Hub) fetchStart(c *call, name string) {
	from := c.client.From
	if h.fetch.Active() {
		h.answerType(c, protocol.TypeFetchErr)
		h.emit(protocol.EventFetchError, from)
		return
	}
	err := h.fetch.Start(c.client, name, h.openSource(name), h.onFetchEnd, h.opts.Clock.Millis())
	if err != nil {
		c.log.WithError(err).Info("fetch refused")
		h.answerType(c, protocol.TypeFetchErr)
		h.emit(protocol.EventFetchError, from)
		return
	}
	h.answerType(c, protocol.TypeFetchStart)
	h.emit(protocol.EventFetch, from)
}

func (h *Hub) fetchChunk(c *call) {
	from := c.client.From
	ch, done, err := h.fetch.Next(c.client, h.opts.Clock.Millis())
	if err != nil {
		c.log.WithError(err).Info("fetch chunk refused")
		h.answerType(c, protocol.TypeFetchErr)
		h.emit(protocol.EventFetchError, from)
		return
	}
	e := protocol.NewEnvelope(h.opts.ID, protocol.TypeFetchChunk)
	e.Int("chunk", int64(ch.Index))
	e.Int("amount", int64(ch.Amount))
	e.Str("data", base64.StdEncoding.EncodeToString(ch.Data))
	h.answer(c, e.Bytes())
	if done {
		h.emit(protocol.EventFetchFinish, from)
	} else {
		h.emit(protocol.EventFetchChunk, from)
	}
}

func (h *Hub) fetchStop(c *call) {
	if h.fetch.Active() && h.fetch.Owner() != c.client {
		c.log.Info("fetch stop from a stranger refused")
		h.answerType(c, protocol.TypeFetchErr)
		h.emit(protocol.EventFetchError, c.client.From)
		return
	}
	if h.fetch.Active() {
		h.fetch.Stop()
	}
	h.emit(protocol.EventFetchAborted, c.client.From)
}

// ----- upload -----

func (h *Hub) uploadStart(c *call, name string) {
	from := c.client.From
	if err := h.upload.Start(c.client, name, h.opts.Clock.Millis()); err != nil {
		c.log.WithError(err).Info("upload refused")
		h.answerType(c, protocol.TypeUploadErr)
		h.emit(protocol.EventUploadError, from)
		return
	}
	h.answerType(c, protocol.TypeUploadStart)
	h.emit(protocol.EventUpload, from)
}

func (h *Hub) uploadChunk(c *call, marker, value string) {
	from := c.client.From
	last, err := h.upload.Chunk(c.client, marker, value, h.opts.Clock.Millis())
	if err != nil {
		c.log.WithError(err).Info("upload chunk refused")
		h.answerType(c, protocol.TypeUploadErr)
		h.emit(protocol.EventUploadError, from)
		return
	}
	if last {
		h.answerType(c, protocol.TypeUploadEnd)
		h.emit(protocol.EventUploadFinish, from)
		return
	}
	h.answerType(c, protocol.TypeUploadChunk)
	h.emit(protocol.EventUploadChunk, from)
}

// ----- ota -----

func (h *Hub) otaStart(c *call, name string) {
	from := c.client.From
	err := h.ota.Start(c.client, name, h.opts.Clock.Millis())
	switch {
	case err == nil:
		h.answerType(c, protocol.TypeOTAStart)
		h.emit(protocol.EventOTA, from)
		return
	case errors.Is(err, transfer.ErrBusy):
		h.answerErr(c, protocol.ErrTextUpdateRunning)
	case errors.Is(err, transfer.ErrBadTarget):
		h.answerErr(c, protocol.ErrTextInvalidType)
	default:
		c.log.WithError(err).Warn("update refused")
		h.answerType(c, protocol.TypeOTAErr)
	}
	h.emit(protocol.EventOTAError, from)
}

func (h *Hub) otaChunk(c *call, marker, value string) {
	from := c.client.From
	last, err := h.ota.Chunk(c.client, marker, value, h.opts.Clock.Millis())
	if last {
		if err != nil {
			c.log.WithError(err).Warn("update failed")
			h.answerType(c, protocol.TypeOTAErr)
		} else {
			h.reboot = protocol.RebootOTA
			h.answerType(c, protocol.TypeOTAEnd)
		}
		h.emit(protocol.EventOTAFinish, from)
		return
	}
	if err != nil {
		c.log.WithError(err).Info("update chunk refused")
		h.answerType(c, protocol.TypeOTAErr)
		h.emit(protocol.EventOTAError, from)
		return
	}
	h.answerType(c, protocol.TypeOTAChunk)
	h.emit(protocol.EventOTAChunk, from)
}

// otaURLStart acknowledges the request and downloads the image in the
// background. Every dispatch is dropped until the download ends.
func (h *Hub) otaURLStart(c *call, name, url string) {
	from := c.client.From
	target, err := transfer.ParseTarget(name)
	if err != nil {
		h.answerErr(c, protocol.ErrTextInvalidType)
		h.emit(protocol.EventOTAURL, from)
		return
	}
	if h.ota.Active() {
		h.answerErr(c, protocol.ErrTextUpdateRunning)
		h.emit(protocol.EventOTAURL, from)
		return
	}

	h.answerType(c, protocol.TypeOK)
	h.emit(protocol.EventOTAURL, from)
	h.otaURL.Store(true)

	go func() {
		err := h.runOTAURL(target, url)
		h.mu.Lock()
		defer h.unlock()
		if err != nil {
			c.log.WithError(err).WithField("url", url).Warn("url update failed")
			h.otaURL.Store(false)
			h.answerType(c, protocol.TypeOTAURLErr)
			return
		}
		c.log.WithField("url", url).Info("url update staged")
		h.reboot = protocol.RebootOTAURL
		h.answerType(c, protocol.TypeOTAURLOK)
	}()
}

func (h *Hub) runOTAURL(target transfer.Target, url string) error {
	sink, err := h.opts.Updater.Begin(target)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), OTAURLTimeout)
	defer cancel()
	if _, _, err := h.opts.Downloader.Download(ctx, url, sink); err != nil {
		sink.Abort()
		return err
	}
	return sink.Commit()
}

// RunOTA applies a whole firmware image in one go, as the HTTP upload
// endpoint does. It is refused while a chunked update is running.
func (h *Hub) RunOTA(c protocol.Client, name string, r io.Reader) error {
	h.mu.Lock()
	defer h.unlock()
	if err := h.ota.Run(c, name, r, h.opts.Clock.Millis()); err != nil {
		h.emit(protocol.EventOTAError, c.From)
		return err
	}
	h.reboot = protocol.RebootOTA
	h.emit(protocol.EventOTAFinish, c.From)
	return nil
}
