package httpd

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vitaminmoo/gyverhub/internal/hub"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/store"
	"github.com/vitaminmoo/gyverhub/internal/transfer"
)

func client(c *gin.Context) protocol.Client {
	return protocol.NewClient(protocol.ConnHTTP, c.Query("client_id"))
}

func (s *Server) get(c *gin.Context) {
	url := strings.TrimPrefix(c.Param("url"), "/")
	if url == "fetch" {
		s.fetch(c)
		return
	}
	s.command(c, url)
}

// command answers PREFIX/ID/CLIENT/VERB/NAME=VALUE. A dropped command gets
// an empty body.
func (s *Server) command(c *gin.Context, url string) {
	var col collector
	s.d.DispatchURL(protocol.ConnHTTP, url, col.reply)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", col.take())
}

func (s *Server) fetch(c *gin.Context) {
	p := c.Query("path")
	if p == "" {
		c.String(http.StatusBadRequest, "path required")
		return
	}
	r, size, done, err := s.d.OpenFetch(client(c), p)
	if errors.Is(err, hub.ErrRefused) {
		c.String(http.StatusForbidden, "Forbidden")
		return
	}
	if err != nil || r == nil {
		c.String(http.StatusNotFound, "Not found")
		return
	}
	defer done()
	c.DataFromReader(http.StatusOK, size, contentType(p), r, nil)
}

func (s *Server) upload(c *gin.Context) {
	p := c.Query("path")
	if p == "" {
		c.String(http.StatusBadRequest, "path required")
		return
	}
	file, _, err := c.Request.FormFile(formField(c))
	if err != nil {
		c.String(http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	err = s.d.SaveUpload(client(c), p, file)
	switch {
	case errors.Is(err, hub.ErrRefused):
		c.String(http.StatusServiceUnavailable, "Upload disabled")
	case err != nil:
		s.log.WithError(err).WithField("path", p).Warn("upload failed")
		c.String(http.StatusInternalServerError, "Upload error")
	default:
		c.String(http.StatusOK, "Upload OK")
	}
}

func (s *Server) ota(c *gin.Context) {
	target := c.DefaultQuery("type", transfer.TargetFlash.String())
	file, _, err := c.Request.FormFile(formField(c))
	if err != nil {
		c.String(http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	err = s.d.UpdateFirmware(client(c), target, file)
	switch {
	case errors.Is(err, hub.ErrRefused):
		c.String(http.StatusServiceUnavailable, "OTA disabled")
	case errors.Is(err, transfer.ErrBusy):
		c.String(http.StatusConflict, "Update already running")
	case errors.Is(err, transfer.ErrBadTarget):
		c.String(http.StatusBadRequest, "Invalid type")
	case err != nil:
		s.log.WithError(err).WithField("type", target).Warn("update failed")
		c.String(http.StatusInternalServerError, "OTA error")
	default:
		c.String(http.StatusOK, "OTA OK")
	}
}

func (s *Server) www(c *gin.Context) {
	p := path.Join("/www", c.Param("filepath"))
	if strings.HasSuffix(c.Param("filepath"), "/") {
		p = path.Join(p, "index.html")
	}
	abs, err := s.d.Store().Abs(p)
	if err != nil {
		c.String(http.StatusNotFound, "Not found")
		return
	}
	if fi, err := os.Stat(abs); err != nil || fi.IsDir() {
		c.String(http.StatusNotFound, "Not found")
		return
	}
	// http.ServeFile answers If-None-Match against this
	if sum, err := s.d.Store().ContentHash(p); err == nil {
		c.Header("ETag", `"`+store.ShortHash(sum)+`"`)
	}
	c.File(abs)
}

// formField picks the first file field of a multipart form
func formField(c *gin.Context) string {
	form, err := c.MultipartForm()
	if err != nil {
		return ""
	}
	for name := range form.File {
		return name
	}
	return ""
}

func contentType(p string) string {
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
