package linkserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/linkport/internal/core/domain"
	"github.com/yndnr/linkport/internal/telemetry/logger"
	"github.com/yndnr/linkport/internal/telemetry/metric"
)

// DefaultPort is the fixed TCP port of the listener.
const DefaultPort = 7991

var (
	// ErrAlreadyStarted is returned by Start when the accept loop is running.
	ErrAlreadyStarted = errors.New("linkserver: already started")

	// ErrNotLoopback is returned by Bind and Start for an address that is not
	// a loopback address.
	ErrNotLoopback = errors.New("linkserver: address is not loopback")
)

// Validator checks that a request originates from the local machine.
type Validator interface {
	Validate(ctx context.Context, peer net.Addr, headers domain.HeaderSet) error
}

// Dispatcher schedules a navigation without waiting for it.
type Dispatcher interface {
	Dispatch(cmd domain.NavigationCommand) error
}

// Config holds the listener configuration.
type Config struct {
	// Address is the loopback address to bind. Only tests change it.
	Address string
	// AcceptTimeout bounds each accept so the loop notices shutdown (default: 5s).
	AcceptTimeout time.Duration
	// RetryInterval is the pause between failed bind attempts (default: 1s).
	RetryInterval time.Duration
	// ReadTimeout bounds reading the header block (default: 10s).
	ReadTimeout time.Duration
	// WriteTimeout bounds writing the response (default: 5s).
	WriteTimeout time.Duration
	// MaxHeaderLines limits the header block (default: 100).
	MaxHeaderLines int
	// MaxLineBytes limits one header line (default: 8KiB).
	MaxLineBytes int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:        net.JoinHostPort("127.0.0.1", strconv.Itoa(DefaultPort)),
		AcceptTimeout:  5 * time.Second,
		RetryInterval:  time.Second,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxHeaderLines: DefaultMaxHeaderLines,
		MaxLineBytes:   DefaultMaxLineBytes,
	}
}

// deadlineListener is the part of *net.TCPListener the accept loop needs.
type deadlineListener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

// Server is the navigation listener.
type Server struct {
	cfg        *Config
	validator  Validator
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *metric.Registry

	mu           sync.Mutex
	ln           deadlineListener
	bindFailures int

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a new listener. A nil metrics registry records nothing.
func New(cfg *Config, validator Validator, dispatcher Dispatcher, logger *slog.Logger, metrics *metric.Registry) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.Address == "" {
		cfg.Address = defaults.Address
	}
	if cfg.AcceptTimeout <= 0 {
		cfg.AcceptTimeout = defaults.AcceptTimeout
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaults.RetryInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.MaxHeaderLines <= 0 {
		cfg.MaxHeaderLines = defaults.MaxHeaderLines
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = defaults.MaxLineBytes
	}

	return &Server{
		cfg:        cfg,
		validator:  validator,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// Addr returns the bound address, or nil while unbound.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Bind attempts to bind the listener once. Binding an already bound server
// is a no-op.
func (s *Server) Bind(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return nil
	}
	if err := checkLoopback(s.cfg.Address); err != nil {
		return err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Address)
	if err != nil {
		s.bindFailures++
		s.metrics.RecordBindFailure()
		if s.bindFailures == 1 {
			s.logger.Warn("could not bind link listener, retrying", "address", s.cfg.Address, "error", err)
		} else {
			s.logger.Debug("bind retry failed", "address", s.cfg.Address, "attempt", s.bindFailures, "error", err)
		}
		return fmt.Errorf("bind %s: %w", s.cfg.Address, err)
	}

	dl, ok := ln.(deadlineListener)
	if !ok {
		_ = ln.Close()
		return fmt.Errorf("bind %s: listener does not support deadlines", s.cfg.Address)
	}
	s.ln = dl
	s.metrics.SetBound(true)
	s.logger.Info("link listener bound", "address", dl.Addr().String(), "failed_attempts", s.bindFailures)
	s.bindFailures = 0
	return nil
}

// Start runs the accept loop in a goroutine until ctx is done or Shutdown
// is called. It returns immediately.
func (s *Server) Start(ctx context.Context) error {
	if err := checkLoopback(s.cfg.Address); err != nil {
		return err
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.acceptLoop(loopCtx)
	return nil
}

// Shutdown stops the accept loop and waits for it to exit.
//
// The loop notices cancellation within one AcceptTimeout; a connection that
// is being served is allowed to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}
	s.cancel()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the accept loop has exited.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer close(s.done)
	defer s.closeListener()

	for ctx.Err() == nil {
		ln := s.listener()
		if ln == nil {
			if err := s.Bind(ctx); err != nil {
				s.sleep(ctx, s.cfg.RetryInterval)
			}
			continue
		}

		if err := ln.SetDeadline(time.Now().Add(s.cfg.AcceptTimeout)); err != nil {
			s.logger.Error("set accept deadline failed", "error", err)
			s.closeListener()
			continue
		}

		conn, err := ln.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept failed", "error", err)
			s.closeListener()
			s.sleep(ctx, s.cfg.RetryInterval)
			continue
		}

		s.handle(ctx, conn)
	}
}

// handle serves one connection inside a fault barrier.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	ctx = logger.WithLogger(ctx, s.logger.With("remote", conn.RemoteAddr().String()))
	ctx = logger.WithRequestID(ctx, ulid.Make().String())
	log := logger.L(ctx)

	defer func() {
		if r := recover(); r != nil {
			_ = conn.Close()
			s.metrics.RecordRejected(metric.ReasonPanic)
			log.Error("connection handler panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	s.serveConn(ctx, conn, log)
}

// serveConn reads one request, answers it and, for an accepted request,
// dispatches navigation after the connection is closed.
func (s *Server) serveConn(ctx context.Context, conn net.Conn, log *slog.Logger) {
	s.metrics.RecordConnection()

	cmd, err := s.exchange(ctx, conn, log)
	if err != nil {
		s.reject(err, log)
		return
	}

	log.Info("navigation requested", "target", cmd.String())
	if err := s.dispatcher.Dispatch(cmd); err != nil {
		log.Debug("dispatch not scheduled", "target", cmd.String(), "error", err)
	}
}

// exchange reads and checks the request. The response is written and conn
// closed on every path, including a panic in validation or parsing.
func (s *Server) exchange(ctx context.Context, conn net.Conn, log *slog.Logger) (domain.NavigationCommand, error) {
	defer conn.Close()
	defer s.respond(conn, log)

	return s.readRequest(ctx, conn)
}

func (s *Server) respond(conn net.Conn, log *slog.Logger) {
	if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		log.Debug("set write deadline failed", "error", err)
		return
	}
	if err := WriteResponse(bufio.NewWriter(conn)); err != nil {
		log.Debug("write response failed", "error", err)
	}
}

func (s *Server) readRequest(ctx context.Context, conn net.Conn) (domain.NavigationCommand, error) {
	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
		return domain.NavigationCommand{}, err
	}

	headers, err := ReadHeaders(bufio.NewReaderSize(conn, s.cfg.MaxLineBytes), s.cfg.MaxHeaderLines)
	logger.L(ctx).Debug("request received", "headers", []string(headers))
	if err != nil {
		if errors.Is(err, domain.ErrHeaderLimit) {
			return domain.NavigationCommand{}, err
		}
		return domain.NavigationCommand{}, domain.ErrMalformedRequest.WithDetails("incomplete header block").WithCause(err)
	}

	if err := s.validator.Validate(ctx, conn.RemoteAddr(), headers); err != nil {
		return domain.NavigationCommand{}, err
	}

	return domain.ParseHeaders(headers)
}

func (s *Server) reject(err error, log *slog.Logger) {
	switch {
	case errors.Is(err, domain.ErrOriginRejected):
		s.metrics.RecordRejected(metric.ReasonOrigin)
		log.Warn("request from non-loopback origin rejected", "error", err)
	case errors.Is(err, domain.ErrNotGet):
		s.metrics.RecordRejected(metric.ReasonMethod)
		log.Debug("ignoring non-GET request", "error", err)
	case errors.Is(err, domain.ErrEmptyRequest):
		s.metrics.RecordRejected(metric.ReasonEmpty)
		log.Debug("empty request", "error", err)
	default:
		s.metrics.RecordRejected(metric.ReasonMalformed)
		log.Warn("malformed request ignored", "error", err)
	}
}

func checkLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("listen address %q: %w", addr, err)
	}
	if strings.EqualFold(host, "localhost") {
		return nil
	}
	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("%w: %q", ErrNotLoopback, addr)
	}
	return nil
}

func (s *Server) listener() deadlineListener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ln
}

func (s *Server) closeListener() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return
	}
	if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug("close link listener", "error", err)
	}
	s.ln = nil
	s.metrics.SetBound(false)
}

func (s *Server) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
