// Package relay is the websocket relay process: it owns the connection
// registry, routes messages between workers and managers, and bridges
// agent replies back onto live sockets.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/shanmukhchodagam/workhub/internal/bus"
	"github.com/shanmukhchodagam/workhub/internal/config"
	"github.com/shanmukhchodagam/workhub/internal/registry"
)

// Server handles the worker and manager websocket endpoints.
type Server struct {
	cfg    *config.Config
	reg    *registry.Registry
	router *Router

	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	// baseCtx outlives individual connections so in-flight persistence and
	// publish operations complete after a disconnect.
	baseCtx context.Context
}

func NewServer(cfg *config.Config, reg *registry.Registry, router *Router) *Server {
	s := &Server{
		cfg:    cfg,
		reg:    reg,
		router: router,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin validates the Origin header against the configured whitelist.
// No configured origins means allow all (dev mode); non-browser clients with
// an empty Origin header are always allowed.
func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.cfg.Relay.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if origin == a || a == "*" {
			return true
		}
	}
	slog.Warn("origin rejected", "origin", origin)
	return false
}

// AttachReplyConsumer registers the agent-reply handler on the bus
// subscription feeding this relay.
func (s *Server) AttachReplyConsumer(sub bus.Subscriber) {
	sub.Subscribe(bus.TopicReply, s.router.HandleAgentReply)
}

// BuildMux creates and caches the HTTP mux.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/worker/{id}", s.handleWorker)
	mux.HandleFunc("/ws/manager/{id}", s.handleManager)
	mux.HandleFunc("/health", s.handleHealth)
	s.mux = mux
	return mux
}

// Start begins serving until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = ctx
	mux := s.BuildMux()

	addr := fmt.Sprintf("%s:%d", s.cfg.Relay.Host, s.cfg.Relay.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	slog.Info("relay starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("relay server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","connections":%d}`, s.reg.Len())
}

func (s *Server) handleWorker(w http.ResponseWriter, r *http.Request) {
	s.handleSocket(w, r, registry.RoleWorker)
}

func (s *Server) handleManager(w http.ResponseWriter, r *http.Request) {
	s.handleSocket(w, r, registry.RoleManager)
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request, role registry.Role) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid identity", http.StatusBadRequest)
		return
	}

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "role", role, "id", id, "error", err)
		return
	}

	conn := newWSConn(raw)
	if prev := s.reg.Register(role, id, conn); prev != nil {
		slog.Info("replacing existing connection", "role", role, "id", id)
		prev.Close()
	}
	slog.Info("client connected", "role", role, "id", id)

	defer func() {
		s.reg.Unregister(role, id, conn)
		conn.Close()
		slog.Info("client disconnected", "role", role, "id", id)
	}()

	s.readLoop(raw, role, id)
}

// readLoop consumes text frames until the socket closes. Worker frames feed
// the router; manager client-to-server frames are outside the routing
// contract and are discarded.
func (s *Server) readLoop(raw *websocket.Conn, role registry.Role, id int64) {
	limiter := s.newLimiter()
	for {
		msgType, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("read error", "role", role, "id", id, "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage || role != registry.RoleWorker {
			continue
		}
		if limiter != nil && !limiter.Allow() {
			s.reg.SendText(role, id, "Rate limit exceeded, message dropped.")
			continue
		}

		// Processing runs on the server context, not the request context:
		// a disconnect mid-flight must not abort persistence of an
		// already-accepted message.
		ctx := s.baseCtx
		if ctx == nil {
			ctx = context.Background()
		}
		if err := s.router.HandleWorkerMessage(ctx, id, string(data)); err != nil {
			slog.Error("message handling failed", "worker", id, "error", err)
		}
	}
}

// newLimiter builds the per-connection rate limiter.
// rate_limit_rpm > 0 enables it at that RPM; <= 0 disables it.
func (s *Server) newLimiter() *rate.Limiter {
	rpm := s.cfg.Relay.RateLimitRPM
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 5)
}

// StartTest serves on a random local port and returns the address and a
// start function. Used by integration tests.
func (s *Server) StartTest(ctx context.Context) (addr string, start func()) {
	s.baseCtx = ctx
	mux := s.BuildMux()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic("listen: " + err.Error())
	}

	s.httpServer = &http.Server{Handler: mux}
	addr = ln.Addr().String()

	start = func() {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.httpServer.Shutdown(shutdownCtx)
		}()
		go s.httpServer.Serve(ln)
	}
	return addr, start
}
