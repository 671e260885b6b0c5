package server

import (
	"net"

	"github.com/adred-codev/kvcore/internal/client"
)

// acceptOnce accepts one connection, constructs a Client, applies the
// maxclients hard cap, and registers the readable handler. Invoked by the
// reactor callback registered on the listening socket's fd.
func (s *Server) acceptOnce() {
	conn, err := s.listener.Accept()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return
		}
		s.logger.Debug().Err(err).Msg("accept failed")
		return
	}

	host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	if s.limiter != nil && !s.limiter.Allow(host) {
		s.metrics.ConnectionsRejectedRate.Inc()
		s.logger.Debug().Str("addr", host).Msg("connection rejected by accept rate limiter")
		conn.Close()
		return
	}

	fd, err := connFD(conn)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to extract raw fd, closing connection")
		conn.Close()
		return
	}

	c := client.New(conn, fd)

	if s.cfg.MaxClients > 0 && s.registry.Len()+1 > s.cfg.MaxClients {
		s.metrics.ConnectionsRejectedMax.Inc()
		// Best-effort inline error, written directly; the client record is
		// discarded without ever being registered.
		conn.Write([]byte("-ERR max number of clients reached\r\n"))
		conn.Close()
		return
	}

	if err := s.poller.Register(fd, Readable, s.onClientEvent); err != nil {
		s.logger.Warn().Err(err).Int("fd", fd).Msg("failed to register readable event, closing connection")
		conn.Close()
		return
	}

	s.registry.Add(c)
	s.metrics.ConnectionsTotal.Inc()
	s.metrics.ConnectionsActive.Inc()
	s.logger.Debug().Str("addr", host).Int("fd", fd).Msg("client connected")
}
