package server

import (
	"context"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/adred-codev/kvcore/internal/client"
	"github.com/adred-codev/kvcore/internal/config"
	"github.com/adred-codev/kvcore/internal/metrics"
	"github.com/adred-codev/kvcore/internal/protocol"
	"github.com/adred-codev/kvcore/internal/ratelimit"
	"github.com/adred-codev/kvcore/internal/reply"
	"github.com/adred-codev/kvcore/internal/writer"
)

// Server wires the acceptor, reactor, reader, drainer, and sweeper into a
// running TCP service: the event loop (Poller), the clients registry,
// logging, and stats counters are all owned here.
type Server struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *metrics.Registry
	limiter *ratelimit.AcceptLimiter

	listener   net.Listener
	poller     Poller
	registry   *Registry
	writer     *writer.Writer
	dispatcher protocol.Dispatcher
	errSink    protocol.ErrorSink

	// currentClient identifies the client mid-parse for diagnostics, kept
	// as a server field rather than a package global: the reactor's single
	// goroutine makes a server-local field just as safe.
	currentClient *client.Client

	// WriteCapPolicy overrides DefaultWriteCapPerEvent when set; nil means
	// always use DefaultWriteCapPerEvent.
	WriteCapPolicy func() int

	stopSweep func()
}

// New constructs a Server. dispatcher may be nil, in which case the minimal
// PING/ECHO/SET/GET/DEL/COMMAND/QUIT table (DefaultDispatcher) is used.
func New(cfg *config.Config, logger zerolog.Logger, promReg *prometheus.Registry, limiter *ratelimit.AcceptLimiter, dispatcher protocol.Dispatcher) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics.New(promReg),
		limiter:  limiter,
		registry: NewRegistry(),
	}

	s.writer = writer.NewWriter(s.installWriteInterest)
	s.writer.OnCoalesce = s.metrics.ReplyCoalesced.Inc
	if dispatcher == nil {
		dispatcher = NewDefaultDispatcher(s.writer)
	}
	s.dispatcher = dispatcher
	s.errSink = metricsErrorSink{
		w:         s.writer,
		metrics:   s.metrics,
		logger:    logger,
		logErrors: cfg.Verbosity == "verbose" || cfg.Verbosity == "debug",
	}
	return s
}

// metricsErrorSink wraps the writer's AddReplyError with a counter increment
// so every protocol error the parser reports is observable, without the
// parser package importing metrics directly. When the verbosity knob is
// "verbose" or "debug" it also logs each protocol error at warn level.
type metricsErrorSink struct {
	w         *writer.Writer
	metrics   *metrics.Registry
	logger    zerolog.Logger
	logErrors bool
}

func (m metricsErrorSink) AddReplyError(c *client.Client, msg string) {
	m.metrics.ProtocolErrors.Inc()
	if m.logErrors {
		m.logger.Warn().Int("fd", c.FD).Str("error", msg).Msg("protocol error")
	}
	m.w.AddReplyError(c, msg)
}

// clientByFD looks up a client by fd, used by every reactor callback.
func (s *Server) clientByFD(fd int) (*client.Client, bool) {
	c, ok := s.registry.byFD[fd]
	return c, ok
}

// onClientEvent is the single callback registered for every client fd; the
// reactor invokes it with whichever of Readable/Writable actually fired,
// one callback per fd keyed by event mask rather than swapping callbacks
// per phase.
func (s *Server) onClientEvent(fd int, mask EventMask) {
	if mask&Readable != 0 {
		s.onReadable(fd, mask)
	}
	if mask&Writable != 0 {
		if _, ok := s.clientByFD(fd); ok {
			s.onWritable(fd, mask)
		}
	}
}

// installWriteInterest is the hook threaded into writer.NewWriter: it adds
// Writable interest alongside the existing Readable registration so the
// drainer gets invoked once the fd can accept more bytes.
func (s *Server) installWriteInterest(c *client.Client) bool {
	if err := s.poller.Register(c.FD, Readable|Writable, s.onClientEvent); err != nil {
		s.logger.Warn().Err(err).Int("fd", c.FD).Msg("failed to install write interest")
		return false
	}
	c.WriteInterestInstalled = true
	return true
}

// FreeClient tears a client down in order: detach diagnostics, null
// querybuf, deregister events, release the reply list, free argv, close the
// socket, remove from the registry. Callers must not invoke it twice for
// the same client.
func (s *Server) FreeClient(c *client.Client) {
	if c.Detached() {
		return
	}
	fd := c.FD

	if s.currentClient == c {
		s.currentClient = nil
	}

	c.QueryBuf = nil

	s.poller.Unregister(fd)

	for e := c.Reply.Front(); e != nil; e = e.Next() {
		e.Value.(*reply.Object).Release()
	}
	c.Reply.Init()
	c.ReplyBytes = 0

	c.Argv = nil

	c.Conn.Close()

	s.registry.Remove(c)
	c.FD = 0
	s.metrics.ConnectionsActive.Dec()
}

// Run starts listening on cfg.Addr and drives the reactor until ctx is
// canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	defer ln.Close()

	poller, err := NewPoller()
	if err != nil {
		return err
	}
	s.poller = poller
	defer poller.Close()

	lfd, err := listenerFD(ln)
	if err != nil {
		return err
	}
	if err := s.poller.Register(lfd, Readable, func(int, EventMask) { s.acceptOnce() }); err != nil {
		return err
	}

	s.startSweeper()
	defer func() {
		if s.stopSweep != nil {
			s.stopSweep()
		}
	}()

	s.logger.Info().Str("addr", s.cfg.Addr).Msg("listening")
	return s.poller.Run(ctx)
}
