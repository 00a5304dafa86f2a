package ws

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/google/uuid"

	"feedlab/feed"
	"feedlab/moderation"
	"feedlab/search"
	"feedlab/services"
	"feedlab/session"
)

// Server upgrades HTTP requests to WebSocket and serves one goroutine
// per connection. Every connection gets its own session and chat
// service over the shared feed store.
type Server struct {
	log       *slog.Logger
	addr      string
	auth      services.IAuthService
	store     *feed.Store
	moderator *moderation.Moderator
	index     *search.Index

	httpServer *http.Server

	mu    sync.Mutex
	conns map[uuid.UUID]*Connection
}

func NewServer(log *slog.Logger, addr string, auth services.IAuthService,
	store *feed.Store, moderator *moderation.Moderator, index *search.Index) *Server {
	return &Server{
		log:       log,
		addr:      addr,
		auth:      auth,
		store:     store,
		moderator: moderator,
		index:     index,
		conns:     make(map[uuid.UUID]*Connection),
	}
}

// Run serves until ctx is cancelled, then drains open connections.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade(ctx))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("websocket server listening", slog.String("addr", s.addr))
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.httpServer.Shutdown(shutdownCtx)

	// Shutdown does not reach hijacked sockets; close them explicitly.
	s.mu.Lock()
	for _, conn := range s.conns {
		_ = conn.conn.Close()
	}
	s.mu.Unlock()

	return <-errCh
}

func (s *Server) handleUpgrade(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			s.log.Warn("upgrade failed", slog.Any("error", err))
			return
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, netConn net.Conn) {
	sess := session.New(s.auth)
	chat := services.NewChatService(sess, s.store, s.moderator, s.index)
	conn := newConnection(netConn, s.log, s.auth, sess, chat)

	s.mu.Lock()
	s.conns[conn.id] = conn
	s.mu.Unlock()

	conn.serve(ctx)

	s.mu.Lock()
	delete(s.conns, conn.id)
	s.mu.Unlock()
}

// Count returns the number of open connections.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
