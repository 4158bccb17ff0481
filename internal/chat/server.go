package chat

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/Smomic/ChatRoom/internal/protocol"
)

const defaultMaxClients = 50

// Server accepts inbound connections, enforces the connection cap and
// hands each admitted socket to a Session.
type Server struct {
	addr       string
	maxClients int
	logger     *slog.Logger

	registry   *Registry
	dispatcher *Dispatcher
	listener   net.Listener
}

func NewServer(addr string, maxClients int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxClients <= 0 {
		maxClients = defaultMaxClients
	}
	registry := NewRegistry()
	return &Server{
		addr:       addr,
		maxClients: maxClients,
		logger:     logger,
		registry:   registry,
		dispatcher: NewDispatcher(registry, 2*maxClients, logger),
	}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = ln

	go s.dispatcher.Run()
	go s.acceptLoop(ln)

	s.logger.Info("server started", "addr", ln.Addr().String(), "max_clients", s.maxClients)
	return nil
}

// Addr returns the bound listen address, for callers that asked for an
// ephemeral port.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener, logs out the live sessions and waits for the
// dispatcher to finish.
func (s *Server) Stop() {
	s.logger.Info("shutting down")

	if s.listener != nil {
		s.listener.Close()
	}

	for _, sess := range s.registry.Drain() {
		sess.Send(protocol.ChatState{Status: protocol.StatusLoggedOut})
		sess.Close()
	}

	s.dispatcher.Stop()
	s.dispatcher.Wait()

	s.logger.Info("shutdown complete")
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Listener closed: normal shutdown path.
			return
		}

		// Soft admission control: over the cap the connection is accepted
		// at the transport level, then closed before it ever gets a
		// session or an event.
		if s.registry.Len() >= s.maxClients {
			RejectionsTotal.WithLabelValues("capacity").Inc()
			s.logger.Warn("connection cap reached, closing", "addr", conn.RemoteAddr().String())
			conn.Close()
			continue
		}

		sess := NewSession(conn, s.logger)
		s.registry.Add(sess)
		s.logger.Info("client connected", "addr", conn.RemoteAddr().String(), "session", sess.ID)
		go sess.ReadLoop(s.dispatcher.Events(), s.dispatcher.Stopped())
	}
}
