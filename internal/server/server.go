package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mbvlabs/linkpulse/internal/logger"
	"github.com/mbvlabs/linkpulse/internal/monitor"
	"github.com/mbvlabs/linkpulse/internal/presenter"
)

const (
	EventsPath     = "/__linkpulse/events"
	ConnectionPath = "/api/connection"
	ReconnectPath  = "/api/connection/reconnect"
	HealthPath     = "/healthz"
)

// Source is the shared connection state every surface renders from.
type Source interface {
	Snapshot() monitor.State
	Reconnect()
	Subscribe() chan struct{}
	Unsubscribe(ch chan struct{})
}

// Payload is what the REST and WebSocket surfaces send.
type Payload struct {
	State       monitor.State  `json:"state"`
	View        presenter.View `json:"view"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Server exposes a Source over HTTP and WebSocket.
type Server struct {
	source Source
	log    logger.Logger
	now    func() time.Time
}

func New(source Source, log logger.Logger) *Server {
	if log == nil {
		log = logger.Noop()
	}
	return &Server{
		source: source,
		log:    log,
		now:    time.Now,
	}
}

func (s *Server) payload() Payload {
	now := s.now()
	state := s.source.Snapshot()
	return Payload{
		State:       state,
		View:        presenter.Build(state, now),
		GeneratedAt: now.UTC(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(ConnectionPath, s.handleConnection)
	mux.HandleFunc(ReconnectPath, s.handleReconnect)
	mux.HandleFunc(HealthPath, s.handleHealth)
	mux.Handle(EventsPath, NewWebSocketHandler(s))
	return mux
}

// IsAPIRequest reports whether r belongs to this server rather than the
// proxied dashboard.
func IsAPIRequest(r *http.Request) bool {
	p := r.URL.Path
	return p == HealthPath || p == EventsPath || p == ConnectionPath || strings.HasPrefix(p, ConnectionPath+"/")
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", server.Addr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serveErr:
		return fmt.Errorf("serve on %s: %w", server.Addr, err)
	}
}
