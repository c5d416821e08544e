package linkserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/linkport/internal/core/domain"
	"github.com/yndnr/linkport/internal/core/service"
	"github.com/yndnr/linkport/internal/telemetry/metric"
)

// ============================================================
// Test doubles
// ============================================================

// staticResolver resolves names from a fixed table.
type staticResolver map[string][]string

func (r staticResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	ips, ok := r[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	addrs := make([]net.IPAddr, 0, len(ips))
	for _, s := range ips {
		addrs = append(addrs, net.IPAddr{IP: net.ParseIP(s)})
	}
	return addrs, nil
}

func newValidator() *service.OriginValidator {
	return service.NewOriginValidator(staticResolver{
		"localhost": {"127.0.0.1", "::1"},
		"evil.test": {"203.0.113.9"},
	}, time.Second)
}

// recordingDispatcher records every dispatched command.
type recordingDispatcher struct {
	mu     sync.Mutex
	cmds   []domain.NavigationCommand
	notify chan domain.NavigationCommand
	panics int
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{notify: make(chan domain.NavigationCommand, 16)}
}

func (d *recordingDispatcher) Dispatch(cmd domain.NavigationCommand) error {
	d.mu.Lock()
	if d.panics > 0 {
		d.panics--
		d.mu.Unlock()
		panic("dispatcher exploded")
	}
	d.cmds = append(d.cmds, cmd)
	d.mu.Unlock()
	d.notify <- cmd
	return nil
}

func (d *recordingDispatcher) commands() []domain.NavigationCommand {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.NavigationCommand(nil), d.cmds...)
}

func (d *recordingDispatcher) wait(t *testing.T) domain.NavigationCommand {
	t.Helper()
	select {
	case cmd := <-d.notify:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
		return domain.NavigationCommand{}
	}
}

// panickingValidator panics on the first n calls and then delegates.
type panickingValidator struct {
	mu    sync.Mutex
	n     int
	inner Validator
}

func (v *panickingValidator) Validate(ctx context.Context, peer net.Addr, headers domain.HeaderSet) error {
	v.mu.Lock()
	if v.n > 0 {
		v.n--
		v.mu.Unlock()
		panic("validator exploded")
	}
	v.mu.Unlock()
	return v.inner.Validate(ctx, peer, headers)
}

// remoteConn overrides the peer address of a net.Conn.
type remoteConn struct {
	net.Conn
	remote net.Addr
}

func (c *remoteConn) RemoteAddr() net.Addr { return c.remote }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(addr string) *Config {
	return &Config{
		Address:       addr,
		AcceptTimeout: 50 * time.Millisecond,
		RetryInterval: 20 * time.Millisecond,
		ReadTimeout:   time.Second,
		WriteTimeout:  time.Second,
	}
}

// startServer starts a listener on an ephemeral loopback port and waits
// until it is bound.
func startServer(t *testing.T, d Dispatcher, reg *metric.Registry) *Server {
	t.Helper()

	s := New(testConfig("127.0.0.1:0"), newValidator(), d, discardLogger(), reg)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	waitBound(t, s)
	return s
}

func waitBound(t *testing.T, s *Server) net.Addr {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if addr := s.Addr(); addr != nil {
			return addr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("listener did not bind")
	return nil
}

// send writes request to the listener and returns everything it answers.
func send(t *testing.T, addr net.Addr, request string) string {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	if _, err := io.WriteString(conn, request); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	resp, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return string(resp)
}

func gaugeOrCounter(t *testing.T, r *metric.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := label == ""
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					match = true
				}
			}
			if !match {
				continue
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

const validRequest = "GET /pkg/File.java?42 HTTP/1.0\r\nHost: localhost:7991\r\n\r\n"

// ============================================================
// Listener behaviour
// ============================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Address != "127.0.0.1:7991" {
		t.Errorf("Address = %q, want 127.0.0.1:7991", cfg.Address)
	}
	if cfg.AcceptTimeout != 5*time.Second {
		t.Errorf("AcceptTimeout = %v, want 5s", cfg.AcceptTimeout)
	}
	if cfg.RetryInterval != time.Second {
		t.Errorf("RetryInterval = %v, want 1s", cfg.RetryInterval)
	}
	if cfg.MaxHeaderLines != DefaultMaxHeaderLines || cfg.MaxLineBytes != DefaultMaxLineBytes {
		t.Errorf("limits = %d/%d", cfg.MaxHeaderLines, cfg.MaxLineBytes)
	}
}

func TestNew_FillsDefaults(t *testing.T) {
	s := New(&Config{Address: "127.0.0.1:0"}, newValidator(), newRecordingDispatcher(), nil, nil)
	if s.cfg.AcceptTimeout != 5*time.Second {
		t.Errorf("AcceptTimeout = %v, want default", s.cfg.AcceptTimeout)
	}
	if s.cfg.Address != "127.0.0.1:0" {
		t.Errorf("Address overwritten: %q", s.cfg.Address)
	}
	if s.logger == nil {
		t.Error("logger should default to slog.Default()")
	}
}

func TestServer_RespondsAndDispatches(t *testing.T) {
	d := newRecordingDispatcher()
	s := startServer(t, d, nil)

	resp := send(t, s.Addr(), validRequest)
	if resp != Response {
		t.Errorf("response = %q, want %q", resp, Response)
	}

	got := d.wait(t)
	want := domain.NavigationCommand{RelativePath: "pkg/File.java", Line: 42}
	if got != want {
		t.Errorf("dispatched %+v, want %+v", got, want)
	}
}

func TestServer_NoLine(t *testing.T) {
	d := newRecordingDispatcher()
	s := startServer(t, d, nil)

	send(t, s.Addr(), "GET /README.md HTTP/1.0\r\nHost: 127.0.0.1:7991\r\n\r\n")

	got := d.wait(t)
	if got.RelativePath != "README.md" || got.HasLine() {
		t.Errorf("dispatched %+v, want README.md without line", got)
	}
}

func TestServer_SameRequestTwice(t *testing.T) {
	d := newRecordingDispatcher()
	s := startServer(t, d, nil)

	first := send(t, s.Addr(), validRequest)
	a := d.wait(t)
	second := send(t, s.Addr(), validRequest)
	b := d.wait(t)

	if first != second {
		t.Errorf("responses differ: %q vs %q", first, second)
	}
	if a != b {
		t.Errorf("dispatches differ: %+v vs %+v", a, b)
	}
}

func TestServer_RejectedRequestsStillGet204(t *testing.T) {
	tests := []struct {
		name    string
		request string
		reason  string
	}{
		{"post", "POST / HTTP/1.0\r\n\r\n", metric.ReasonMethod},
		{"bad line number", "GET /file?abc HTTP/1.0\r\nHost: localhost\r\n\r\n", metric.ReasonMalformed},
		{"zero line number", "GET /file?0 HTTP/1.0\r\n\r\n", metric.ReasonMalformed},
		{"missing version", "GET /file\r\n\r\n", metric.ReasonMalformed},
		{"empty path", "GET / HTTP/1.0\r\n\r\n", metric.ReasonMalformed},
		{"non-loopback host", "GET /a.go HTTP/1.0\r\nHost: evil.test\r\n\r\n", metric.ReasonOrigin},
		{"second host non-loopback", "GET /a.go HTTP/1.0\r\nHost: localhost\r\nhost: 203.0.113.9\r\n\r\n", metric.ReasonOrigin},
		{"unresolvable host", "GET /a.go HTTP/1.0\r\nHost: nowhere.test:7991\r\n\r\n", metric.ReasonOrigin},
		{"empty request", "\r\n", metric.ReasonEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newRecordingDispatcher()
			reg := metric.NewRegistry()
			s := startServer(t, d, reg)

			if resp := send(t, s.Addr(), tt.request); resp != Response {
				t.Errorf("response = %q, want the fixed 204", resp)
			}

			// A valid request afterwards is still served, and is the only dispatch.
			send(t, s.Addr(), validRequest)
			d.wait(t)
			if n := len(d.commands()); n != 1 {
				t.Errorf("dispatches = %d, want 1", n)
			}
			if got := gaugeOrCounter(t, reg, "linkport_requests_rejected_total", "reason", tt.reason); got != 1 {
				t.Errorf("rejected{reason=%q} = %v, want 1", tt.reason, got)
			}
		})
	}
}

func TestServer_NonLoopbackPeer(t *testing.T) {
	d := newRecordingDispatcher()
	s := New(testConfig("127.0.0.1:0"), newValidator(), d, discardLogger(), nil)

	client, server := net.Pipe()
	defer client.Close()
	peer := &net.TCPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 40000}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.handle(context.Background(), &remoteConn{Conn: server, remote: peer})
	}()

	go func() { _, _ = io.WriteString(client, validRequest) }()
	resp, err := io.ReadAll(client)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	<-done

	if string(resp) != Response {
		t.Errorf("response = %q, want the fixed 204", resp)
	}
	if n := len(d.commands()); n != 0 {
		t.Errorf("dispatches = %d, want 0", n)
	}
}

func TestServer_HeaderLimits(t *testing.T) {
	tests := []struct {
		name    string
		request string
	}{
		{"too many lines", "GET /a.go HTTP/1.0\r\n" + strings.Repeat("X-Pad: 1\r\n", 10) + "\r\n"},
		{"line too long", "GET /" + strings.Repeat("a", 256) + " HTTP/1.0\r\n\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newRecordingDispatcher()
			cfg := testConfig("127.0.0.1:0")
			cfg.MaxHeaderLines = 5
			cfg.MaxLineBytes = 64
			s := New(cfg, newValidator(), d, discardLogger(), nil)

			client, server := net.Pipe()
			defer client.Close()
			loopback := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000}

			done := make(chan struct{})
			go func() {
				defer close(done)
				s.handle(context.Background(), &remoteConn{Conn: server, remote: loopback})
			}()

			go func() { _, _ = io.WriteString(client, tt.request) }()
			resp, _ := io.ReadAll(client)
			<-done

			if string(resp) != Response {
				t.Errorf("response = %q, want the fixed 204", resp)
			}
			if n := len(d.commands()); n != 0 {
				t.Errorf("dispatches = %d, want 0", n)
			}
		})
	}
}

func TestServer_FaultBarrier(t *testing.T) {
	d := newRecordingDispatcher()
	d.panics = 1
	reg := metric.NewRegistry()
	s := startServer(t, d, reg)

	send(t, s.Addr(), validRequest)
	send(t, s.Addr(), "GET /after.go HTTP/1.0\r\n\r\n")

	if got := d.wait(t); got.RelativePath != "after.go" {
		t.Errorf("dispatched %+v, want after.go", got)
	}
	if got := gaugeOrCounter(t, reg, "linkport_requests_rejected_total", "reason", metric.ReasonPanic); got != 1 {
		t.Errorf("rejected{reason=panic} = %v, want 1", got)
	}
}

func TestServer_ValidatorPanicStillResponds(t *testing.T) {
	d := newRecordingDispatcher()
	reg := metric.NewRegistry()
	s := New(testConfig("127.0.0.1:0"), &panickingValidator{n: 1, inner: newValidator()}, d, discardLogger(), reg)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	addr := waitBound(t, s)

	if resp := send(t, addr, validRequest); resp != Response {
		t.Errorf("response after validator panic = %q, want %q", resp, Response)
	}
	if n := len(d.commands()); n != 0 {
		t.Errorf("dispatched %d commands after panic, want 0", n)
	}

	if resp := send(t, addr, validRequest); resp != Response {
		t.Errorf("second response = %q, want %q", resp, Response)
	}
	if got := d.wait(t); got.RelativePath != "pkg/File.java" {
		t.Errorf("dispatched %+v, want pkg/File.java", got)
	}

	// Connections are served one at a time, so the first one's fault
	// barrier has run by now.
	if got := gaugeOrCounter(t, reg, "linkport_requests_rejected_total", "reason", metric.ReasonPanic); got != 1 {
		t.Errorf("rejected{reason=panic} = %v, want 1", got)
	}
	if n := len(d.commands()); n != 1 {
		t.Errorf("dispatched %d commands, want 1", n)
	}
}

func TestServer_Metrics(t *testing.T) {
	reg := metric.NewRegistry()
	d := newRecordingDispatcher()
	s := startServer(t, d, reg)

	if got := gaugeOrCounter(t, reg, "linkport_listener_bound", "", ""); got != 1 {
		t.Errorf("listener_bound = %v, want 1", got)
	}

	send(t, s.Addr(), validRequest)
	d.wait(t)
	if got := gaugeOrCounter(t, reg, "linkport_connections_total", "", ""); got != 1 {
		t.Errorf("connections_total = %v, want 1", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := gaugeOrCounter(t, reg, "linkport_listener_bound", "", ""); got != 0 {
		t.Errorf("listener_bound after shutdown = %v, want 0", got)
	}
}

// ============================================================
// Lifecycle
// ============================================================

func TestServer_Shutdown(t *testing.T) {
	s := startServer(t, newRecordingDispatcher(), nil)
	addr := s.Addr()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	// One accept timeout plus scheduling slack.
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Shutdown took %v", elapsed)
	}

	select {
	case <-s.Done():
	default:
		t.Error("Done() should be closed after Shutdown")
	}
	if s.Addr() != nil {
		t.Error("listener should be closed after Shutdown")
	}
	if conn, err := net.DialTimeout("tcp", addr.String(), 200*time.Millisecond); err == nil {
		conn.Close()
		t.Error("Dial after Shutdown should fail")
	}
}

func TestServer_ContextCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(testConfig("127.0.0.1:0"), newValidator(), newRecordingDispatcher(), discardLogger(), nil)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitBound(t, s)

	cancel()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("accept loop did not exit after cancel")
	}
}

func TestServer_StartTwice(t *testing.T) {
	s := startServer(t, newRecordingDispatcher(), nil)
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	s := New(testConfig("127.0.0.1:0"), newValidator(), newRecordingDispatcher(), discardLogger(), nil)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() before Start error = %v", err)
	}
}

func TestServer_BindRetry(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := occupied.Addr().String()

	reg := metric.NewRegistry()
	d := newRecordingDispatcher()
	s := New(testConfig(addr), newValidator(), d, discardLogger(), reg)

	if err := s.Bind(context.Background()); err == nil {
		t.Fatal("Bind() on an occupied port should fail")
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	if s.Addr() != nil {
		t.Fatal("server should not be bound while the port is occupied")
	}
	if got := gaugeOrCounter(t, reg, "linkport_bind_failures_total", "", ""); got < 2 {
		t.Errorf("bind_failures_total = %v, want retries", got)
	}

	occupied.Close()
	bound := waitBound(t, s)
	if bound.String() != addr {
		t.Errorf("bound to %s, want %s", bound, addr)
	}

	send(t, bound, validRequest)
	d.wait(t)
}

func TestServer_BindIdempotent(t *testing.T) {
	s := New(testConfig("127.0.0.1:0"), newValidator(), newRecordingDispatcher(), discardLogger(), nil)
	if err := s.Bind(context.Background()); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	first := s.Addr()
	if err := s.Bind(context.Background()); err != nil {
		t.Fatalf("second Bind() error = %v", err)
	}
	if s.Addr().String() != first.String() {
		t.Errorf("second Bind() rebound to %s", s.Addr())
	}
	s.closeListener()
}


func TestServer_RejectsNonLoopbackAddress(t *testing.T) {
	for _, addr := range []string{"0.0.0.0:0", ":0", "[::]:0", "192.0.2.10:0", "example.com:0", "no-port"} {
		t.Run(addr, func(t *testing.T) {
			s := New(testConfig(addr), newValidator(), newRecordingDispatcher(), discardLogger(), nil)

			if err := s.Bind(context.Background()); err == nil {
				s.closeListener()
				t.Fatal("Bind() error = nil, want rejection")
			}
			if s.Addr() != nil {
				t.Errorf("Addr() = %v after rejected bind", s.Addr())
			}
			if err := s.Start(context.Background()); err == nil {
				_ = s.Shutdown(context.Background())
				t.Fatal("Start() error = nil, want rejection")
			}
		})
	}

	s := New(testConfig("0.0.0.0:0"), newValidator(), newRecordingDispatcher(), discardLogger(), nil)
	if err := s.Bind(context.Background()); !errors.Is(err, ErrNotLoopback) {
		t.Errorf("Bind(0.0.0.0:0) error = %v, want ErrNotLoopback", err)
	}
}

func TestServer_BindLoopbackAddresses(t *testing.T) {
	for _, addr := range []string{"127.0.0.1:0", "127.0.0.2:0", "localhost:0"} {
		t.Run(addr, func(t *testing.T) {
			s := New(testConfig(addr), newValidator(), newRecordingDispatcher(), discardLogger(), nil)
			if err := s.Bind(context.Background()); err != nil {
				t.Skipf("Bind(%s) unavailable here: %v", addr, err)
			}
			defer s.closeListener()

			tcp, ok := s.Addr().(*net.TCPAddr)
			if !ok || !tcp.IP.IsLoopback() {
				t.Errorf("bound to %v, want a loopback address", s.Addr())
			}
		})
	}
}
