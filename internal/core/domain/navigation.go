package domain

import (
	"net/url"
	"strconv"
	"strings"
)

// GetPrefix is the only request method accepted by the listener.
const GetPrefix = "GET "

// NavigationCommand is the instruction handed to the editor host: open the
// file at RelativePath and, when Line is set, move the caret to that 1-based line.
type NavigationCommand struct {
	RelativePath string
	Line         int
}

// HasLine reports whether a line number was requested.
func (c NavigationCommand) HasLine() bool {
	return c.Line > 0
}

// String returns the command in "path:line" form.
func (c NavigationCommand) String() string {
	if c.HasLine() {
		return c.RelativePath + ":" + strconv.Itoa(c.Line)
	}
	return c.RelativePath
}

// ParseHeaders parses the request line of h into a NavigationCommand.
func ParseHeaders(h HeaderSet) (NavigationCommand, error) {
	if len(h) == 0 {
		return NavigationCommand{}, ErrEmptyRequest
	}
	return ParseRequestLine(h.RequestLine())
}

// ParseRequestLine parses "GET <absolute-path>[?<line>] <http-version>".
//
// The path runs from the method prefix to the last space. Text after the last
// '?' must be a positive line number. One leading '/' is stripped and
// percent-escapes are decoded.
func ParseRequestLine(line string) (NavigationCommand, error) {
	if !strings.HasPrefix(line, GetPrefix) {
		return NavigationCommand{}, ErrNotGet.WithDetails(methodOf(line))
	}

	rest := line[len(GetPrefix):]
	lastSpace := strings.LastIndexByte(rest, ' ')
	if lastSpace < 0 {
		return NavigationCommand{}, ErrMalformedRequest.WithDetails("missing http version")
	}
	target := rest[:lastSpace]

	var cmd NavigationCommand
	if q := strings.LastIndexByte(target, '?'); q >= 0 {
		n, err := strconv.Atoi(target[q+1:])
		if err != nil {
			return NavigationCommand{}, ErrMalformedRequest.WithDetails("invalid line number").WithCause(err)
		}
		if n < 1 {
			return NavigationCommand{}, ErrMalformedRequest.WithDetails("line number must be positive")
		}
		cmd.Line = n
		target = target[:q]
	}

	target = strings.TrimPrefix(target, "/")
	path, err := url.PathUnescape(target)
	if err != nil {
		return NavigationCommand{}, ErrMalformedRequest.WithDetails("invalid path escape").WithCause(err)
	}
	if path == "" {
		return NavigationCommand{}, ErrMalformedRequest.WithDetails("empty path")
	}
	cmd.RelativePath = path

	return cmd, nil
}

// methodOf returns the first token of a request line, for error details.
func methodOf(line string) string {
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return line[:i]
	}
	return line
}
