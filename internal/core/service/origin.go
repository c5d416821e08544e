package service

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/linkport/internal/core/domain"
)

// DefaultResolveTimeout bounds each Host header lookup.
const DefaultResolveTimeout = 2 * time.Second

// Resolver resolves host names. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// OriginValidator checks that a request comes from and is addressed to the
// local machine. It guards against remote peers and DNS rebinding through
// forged or attacker-controlled Host headers.
type OriginValidator struct {
	resolver Resolver
	timeout  time.Duration
}

// NewOriginValidator creates a validator. A nil resolver uses net.DefaultResolver.
func NewOriginValidator(resolver Resolver, timeout time.Duration) *OriginValidator {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	return &OriginValidator{
		resolver: resolver,
		timeout:  timeout,
	}
}

// Validate returns nil only if peer is a loopback address and every Host
// header resolves exclusively to loopback addresses. Any other outcome is
// ErrOriginRejected with details.
func (v *OriginValidator) Validate(ctx context.Context, peer net.Addr, headers domain.HeaderSet) error {
	ip := peerIP(peer)
	if ip == nil || !ip.IsLoopback() {
		return domain.ErrOriginRejected.WithDetails("non-loopback peer " + addrString(peer))
	}

	for _, host := range headers.Values("Host") {
		if err := v.checkHost(ctx, host); err != nil {
			return err
		}
	}
	return nil
}

// checkHost resolves a Host header value and requires loopback results.
// A value that fails to resolve is retried without its ":port" suffix.
func (v *OriginValidator) checkHost(ctx context.Context, value string) error {
	if value == "" {
		return domain.ErrOriginRejected.WithDetails("empty Host header")
	}

	ips, err := v.resolve(ctx, value)
	if err != nil {
		host, port, splitErr := net.SplitHostPort(value)
		if splitErr != nil {
			return domain.ErrOriginRejected.WithDetails("unresolvable Host header " + strconv.Quote(value)).WithCause(err)
		}
		if _, portErr := strconv.ParseUint(port, 10, 16); portErr != nil {
			return domain.ErrOriginRejected.WithDetails("invalid port in Host header " + strconv.Quote(value))
		}
		ips, err = v.resolve(ctx, host)
		if err != nil {
			return domain.ErrOriginRejected.WithDetails("unresolvable Host header " + strconv.Quote(value)).WithCause(err)
		}
	}

	if len(ips) == 0 {
		return domain.ErrOriginRejected.WithDetails("Host header " + strconv.Quote(value) + " resolved to nothing")
	}
	for _, ip := range ips {
		if !ip.IsLoopback() {
			return domain.ErrOriginRejected.WithDetails("Host header " + strconv.Quote(value) + " resolves to " + ip.String())
		}
	}
	return nil
}

// resolve turns a host (literal IP, bracketed IPv6 or name) into addresses.
func (v *OriginValidator) resolve(ctx context.Context, host string) ([]net.IP, error) {
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	addrs, err := v.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}

func peerIP(addr net.Addr) net.IP {
	if addr == nil {
		return nil
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP
	}
	host := addr.String()
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return "<nil>"
	}
	return addr.String()
}
