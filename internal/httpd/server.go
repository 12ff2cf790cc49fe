// Package httpd is the HTTP transport. Command paths are answered as plain
// text; files and firmware move through dedicated endpoints.
package httpd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vitaminmoo/gyverhub/internal/config"
	"github.com/vitaminmoo/gyverhub/internal/hub"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/store"
)

// Device is the part of the hub the HTTP endpoints use
type Device interface {
	DispatchURL(from protocol.Conn, url string, reply hub.Reply)
	OpenFetch(c protocol.Client, path string) (io.Reader, int64, func(), error)
	SaveUpload(c protocol.Client, path string, r io.Reader) error
	UpdateFirmware(c protocol.Client, target string, r io.Reader) error
	Store() *store.Store
}

// Server routes HTTP requests to a device
type Server struct {
	d      Device
	log    logrus.FieldLogger
	router *gin.Engine
}

// New builds the router
func New(d Device) *Server {
	if !config.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		d:      d,
		log:    config.Log.WithField("conn", protocol.ConnHTTP.String()),
		router: gin.New(),
	}

	s.router.Use(gin.Recovery())
	s.router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		ExposeHeaders:   []string{"Content-Length"},
	}))
	s.router.Use(loggingMiddleware(s.log))

	// /hub/fetch shares the catch-all, see get
	s.router.GET("/hub/*url", s.get)
	s.router.POST("/hub/upload", s.upload)
	s.router.POST("/hub/ota", s.ota)
	s.router.GET("/www/*filepath", s.www)
	return s
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	s.log.WithField("addr", addr).Info("HTTP listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// collector gathers the answers produced by one dispatch. Answers that
// arrive after the response was written are dropped.
type collector struct {
	mu   sync.Mutex
	buf  []byte
	done bool
}

func (c *collector) reply(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done {
		c.buf = append(c.buf, data...)
	}
}

func (c *collector) take() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = true
	return c.buf
}

func loggingMiddleware(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		log.WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debugf("[%s] %s", c.Request.Method, path)
	}
}
