// Package wsock is the WebSocket transport. Every text message is one
// command path; answers go back to the sending connection only.
package wsock

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/vitaminmoo/gyverhub/internal/config"
	"github.com/vitaminmoo/gyverhub/internal/hub"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	// the web client is served from anywhere, including file://
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Dispatcher routes one command line
type Dispatcher interface {
	DispatchURL(from protocol.Conn, url string, reply hub.Reply)
}

// peer is one connected socket. gorilla connections allow a single writer.
type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (p *peer) write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// Server accepts WebSocket clients
type Server struct {
	d   Dispatcher
	log logrus.FieldLogger

	mu    sync.RWMutex
	peers map[*peer]struct{}
}

// New creates a server feeding d
func New(d Dispatcher) *Server {
	return &Server{
		d:     d,
		log:   config.Log.WithField("conn", protocol.ConnWebsocket.String()),
		peers: make(map[*peer]struct{}),
	}
}

// Conn implements hub.Transport
func (s *Server) Conn() protocol.Conn {
	return protocol.ConnWebsocket
}

// Clients is the number of open sockets
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Broadcast implements hub.Transport
func (s *Server) Broadcast(data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs []error
	for p := range s.peers {
		if err := p.write(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ServeHTTP upgrades the request and serves the socket until it closes
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	p := &peer{conn: conn}
	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.peers, p)
		s.mu.Unlock()
	}()

	log := s.log.WithField("remote", conn.RemoteAddr().String())
	log.Debug("WebSocket client connected")
	reply := func(data []byte) {
		if err := p.write(data); err != nil {
			log.WithError(err).Warn("failed to send answer")
		}
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("WebSocket read failed")
			}
			break
		}
		for _, line := range strings.Split(string(msg), "\n") {
			line = strings.TrimRight(line, "\r")
			if line != "" {
				s.d.DispatchURL(protocol.ConnWebsocket, line, reply)
			}
		}
	}
	log.Debug("WebSocket client disconnected")
}

// ListenAndServe serves WebSocket clients on addr at any path until ctx is
// done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	s.log.WithField("addr", addr).Info("WebSocket listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
