// Package dispatch implements the server-side state machine: one
// goroutine per accepted connection, reading frames in a loop, resolving
// the caller via an explicit session handle, dispatching to the account
// store, and writing the matching response. See SPEC_FULL.md §9 for why
// session identity is an explicit handle rather than goroutine identity.
package dispatch

import (
	"context"
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chat262/internal/store"
	"chat262/internal/transport"
	"chat262/internal/wire"
)

// Server ties the account Store to the TCP listener and the per-connection
// handler goroutines.
type Server struct {
	store  *store.Store
	logger *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc
	group    *errgroup.Group
	conns    map[net.Conn]struct{}
}

// New creates a Server backed by st, logging through logger.
func New(st *store.Store, logger *zap.Logger) *Server {
	return &Server{
		store:  st,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
	}
}

// ListenAndServe opens a TCP listener on addr and accepts connections
// until Shutdown is called or Accept fails. It blocks until every
// accepted connection's handler has returned.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	s.mu.Lock()
	s.listener = ln
	s.cancel = cancel
	s.group = group
	s.mu.Unlock()

	s.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	group.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-gctx.Done():
					return nil
				default:
					return err
				}
			}
			s.trackConn(conn)
			group.Go(func() error {
				s.handleConn(gctx, conn)
				return nil
			})
		}
	})

	return group.Wait()
}

// Shutdown stops accepting new connections, closes every tracked
// connection (which unblocks their blocking reads), and waits for every
// handler goroutine to return.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	ln := s.listener
	cancel := s.cancel
	group := s.group
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ln != nil {
		_ = ln.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	if group != nil {
		return group.Wait()
	}
	return nil
}

func (s *Server) trackConn(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// handleConn runs the Reading-Header -> Reading-Body -> Dispatching loop
// for one accepted connection until a terminal condition closes it.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	session := store.NewSessionID()
	defer func() {
		s.untrackConn(conn)
		s.store.Disconnect(session)
		_ = conn.Close()
	}()

	s.logger.Info("connection opened",
		zap.String("session", session.String()),
		zap.String("remote", remoteAddr(conn)))
	defer s.logger.Info("connection closed", zap.String("session", session.String()))

	for {
		hdr, body, err := transport.ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, transport.ErrConnectionClosed) {
				s.logger.Warn("read frame", zap.String("session", session.String()), zap.Error(err))
			}
			return
		}

		if hdr.Version != wire.ProtocolVersion {
			s.logger.Info("wrong protocol version",
				zap.String("session", session.String()), zap.Uint16("version", hdr.Version))
			_ = s.sendFrame(conn, wire.TypeWrongVersion,
				wire.WrongVersionResponse{CorrectVersion: wire.ProtocolVersion}.Marshal())
			return
		}

		shouldClose, err := s.dispatch(session, hdr.Type, body, conn)
		if err != nil {
			s.logger.Warn("send response", zap.String("session", session.String()), zap.Error(err))
			return
		}
		if shouldClose {
			return
		}
	}
}

func (s *Server) sendFrame(conn net.Conn, typ wire.MessageType, body []byte) error {
	return transport.WriteFrame(conn, wire.Header{Version: wire.ProtocolVersion, Type: typ}, body)
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
