package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Driver turns one telemetry sample into a command.
type Driver interface {
	Drive(t *Telemetry) (*Steer, error)
}

// DriverFunc adapts a function to Driver.
type DriverFunc func(t *Telemetry) (*Steer, error)

func (f DriverFunc) Drive(t *Telemetry) (*Steer, error) { return f(t) }

const (
	socketBufferSize = 4096
	writeWait        = 5 * time.Second
)

const helloPage = "<h1>Hello world!</h1>"

type Server struct {
	addr     string
	driver   Driver
	latency  time.Duration
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	http  *http.Server
	conns map[*websocket.Conn]struct{}
	wg    sync.WaitGroup

	// done is closed by Shutdown; hijacked sockets outlive their request
	// context, so delayed replies wait on this instead.
	done     chan struct{}
	stopOnce sync.Once
}

// NewServer answers every telemetry frame through d after sleeping for
// latency, which stands in for the actuation delay of a real car.
func NewServer(addr string, d Driver, latency time.Duration, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{
		addr:    addr,
		driver:  d,
		latency: latency,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  socketBufferSize,
			WriteBufferSize: socketBufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
		done:  make(chan struct{}),
	}
}

// ServeHTTP upgrades websocket requests on any path and serves the hello
// page for plain GET /.
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if websocket.IsWebSocketUpgrade(req) {
		s.serveSocket(w, req)
		return
	}
	if req.Method == http.MethodGet && req.URL.Path == "/" {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(helloPage))
		return
	}
	http.NotFound(w, req)
}

func (s *Server) serveSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "remote", req.RemoteAddr, "error", err)
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Infow("simulator connected", "remote", req.RemoteAddr)
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
		s.wg.Done()
		s.logger.Infow("simulator disconnected", "remote", req.RemoteAddr)
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warnw("read failed", "error", err)
			}
			return
		}

		reply := s.handle(string(msg))
		if reply == nil {
			continue
		}

		if s.latency > 0 {
			select {
			case <-time.After(s.latency):
			case <-s.done:
				return
			}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			s.logger.Warnw("write failed", "error", err)
			return
		}
	}
}

// handle returns the reply for one message, or nil when none is due.
func (s *Server) handle(msg string) []byte {
	frame, err := Parse(msg)
	switch {
	case errors.Is(err, ErrNotEvent):
		return nil
	case errors.Is(err, ErrNoData):
		return ManualFrame
	case err != nil:
		s.logger.Warnw("dropping frame", "error", err)
		return ManualFrame
	}

	if frame.Event != EventTelemetry {
		s.logger.Debugw("ignoring event", "event", frame.Event)
		return nil
	}

	t, err := DecodeTelemetry(frame)
	if err != nil {
		s.logger.Warnw("bad telemetry", "error", err)
		return ManualFrame
	}

	cmd, err := s.driver.Drive(t)
	if err != nil {
		s.logger.Warnw("drive failed", "error", err)
		return ManualFrame
	}

	out, err := EncodeSteer(cmd)
	if err != nil {
		s.logger.Errorw("encode failed", "error", err)
		return ManualFrame
	}
	return out
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	s.logger.Infow("listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown stops accepting connections and closes the open sockets.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	srv := s.http
	var err error
	for c := range s.conns {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown")
		_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = multierr.Append(err, c.Close())
	}
	s.mu.Unlock()

	if srv != nil {
		err = multierr.Append(err, srv.Shutdown(ctx))
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
	}
	return err
}
