// Package connection provides the linkport-cli client for the link listener.
package connection

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultAddr is the address of a local link listener.
const DefaultAddr = "127.0.0.1:7991"

// DefaultTimeout bounds one request (dial, write and read).
const DefaultTimeout = 5 * time.Second

// ErrUnexpectedStatus is returned when the listener answers with anything
// other than 204.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// Status is the parsed response of the listener.
type Status struct {
	Proto   string        `json:"proto" yaml:"proto"`
	Code    int           `json:"code" yaml:"code"`
	Reason  string        `json:"reason" yaml:"reason"`
	Server  string        `json:"server" yaml:"server"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// LinkClient sends navigation requests to a link listener.
type LinkClient struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

// NewLinkClient creates a client for addr. Empty values select the defaults.
func NewLinkClient(addr string, timeout time.Duration) *LinkClient {
	if addr == "" {
		addr = DefaultAddr
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &LinkClient{addr: addr, timeout: timeout}
}

// Addr returns the listener address.
func (c *LinkClient) Addr() string {
	return c.addr
}

// BuildRequestLine returns the request line that opens path, at line when
// line is positive. Path segments are percent-escaped.
func BuildRequestLine(path string, line int) string {
	u := url.URL{Path: "/" + strings.TrimPrefix(path, "/")}
	target := u.EscapedPath()
	if line > 0 {
		target += "?" + strconv.Itoa(line)
	}
	return "GET " + target + " HTTP/1.0"
}

// Open asks the listener to open path, optionally at line.
func (c *LinkClient) Open(ctx context.Context, path string, line int) (*Status, error) {
	if strings.TrimPrefix(path, "/") == "" {
		return nil, errors.New("path is required")
	}
	if line < 0 {
		return nil, fmt.Errorf("invalid line %d", line)
	}
	return c.Send(ctx, BuildRequestLine(path, line))
}

// Ping sends a request with an empty path. The listener answers it like any
// other request but never navigates.
func (c *LinkClient) Ping(ctx context.Context) (*Status, error) {
	return c.Send(ctx, "GET / HTTP/1.0")
}

// Send writes requestLine and a Host header, then reads the status line and
// headers of the response. A status other than 204 returns the parsed status
// together with ErrUnexpectedStatus.
func (c *LinkClient) Send(ctx context.Context, requestLine string) (*Status, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}

	w := bufio.NewWriter(conn)
	fmt.Fprintf(w, "%s\r\nHost: %s\r\n\r\n", requestLine, c.addr)
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	status, err := readStatus(textproto.NewReader(bufio.NewReader(conn)))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	status.Elapsed = time.Since(start)

	if status.Code != 204 {
		return status, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, status.Code, status.Reason)
	}
	return status, nil
}

func readStatus(r *textproto.Reader) (*Status, error) {
	line, err := r.ReadLine()
	if err != nil {
		return nil, err
	}

	proto, rest, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return nil, fmt.Errorf("malformed status line %q", line)
	}
	codeText, reason, _ := strings.Cut(rest, " ")
	code, err := strconv.Atoi(codeText)
	if err != nil {
		return nil, fmt.Errorf("malformed status code %q", codeText)
	}

	// The listener closes the connection after the header block; a short
	// read still leaves a usable status.
	header, _ := r.ReadMIMEHeader()

	return &Status{
		Proto:  proto,
		Code:   code,
		Reason: reason,
		Server: header.Get("Server"),
	}, nil
}
