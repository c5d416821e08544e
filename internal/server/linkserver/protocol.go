package linkserver

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/linkport/internal/core/domain"
)

// Protocol limits.
const (
	// DefaultMaxHeaderLines limits the number of lines in one header block.
	DefaultMaxHeaderLines = 100

	// DefaultMaxLineBytes limits a single header line, terminator included.
	DefaultMaxLineBytes = 8 * 1024
)

// ServerName is the value of the Server response header.
const ServerName = "linkport LinkURLPort7991"

// Response is the only response the listener ever writes.
var Response = strings.Join([]string{
	"HTTP/1.0 204 OK",
	"Server: " + ServerName,
	"Content-Length: 0",
	"Content-Language: en",
	"Connection: close",
	"Content-Type: application/octet-stream",
	"",
	"",
}, "\r\n")

// ReadHeaders reads header lines from r until a blank line or EOF.
//
// Line terminators are stripped. A line longer than the reader's buffer or a
// block longer than maxLines yields domain.ErrHeaderLimit together with the
// lines read so far.
func ReadHeaders(r *bufio.Reader, maxLines int) (domain.HeaderSet, error) {
	var headers domain.HeaderSet
	for {
		line, err := r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			return headers, domain.ErrHeaderLimit.WithDetails("line exceeds " + strconv.Itoa(r.Size()) + " bytes")
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return headers, err
		}

		text := strings.TrimRight(string(line), "\r\n")
		if text == "" {
			return headers, nil
		}
		if maxLines > 0 && len(headers) >= maxLines {
			return headers, domain.ErrHeaderLimit.WithDetails("more than " + strconv.Itoa(maxLines) + " lines")
		}
		headers = append(headers, text)

		if err != nil {
			return headers, nil
		}
	}
}

// WriteResponse writes Response to w and flushes it.
func WriteResponse(w *bufio.Writer) error {
	if _, err := w.WriteString(Response); err != nil {
		return err
	}
	return w.Flush()
}
