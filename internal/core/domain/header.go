package domain

import "strings"

// HeaderSet holds the raw lines of one request, in arrival order and without
// line terminators. The first entry is the request line.
type HeaderSet []string

// RequestLine returns the first line, or "" for an empty set.
func (h HeaderSet) RequestLine() string {
	if len(h) == 0 {
		return ""
	}
	return h[0]
}

// Fields returns the header lines that follow the request line.
func (h HeaderSet) Fields() []string {
	if len(h) < 2 {
		return nil
	}
	return h[1:]
}

// Values returns the trimmed values of every header named name.
// Names are matched case-insensitively. The request line is never matched.
func (h HeaderSet) Values(name string) []string {
	prefix := name + ":"
	var values []string
	for _, line := range h.Fields() {
		if len(line) < len(prefix) || !strings.EqualFold(line[:len(prefix)], prefix) {
			continue
		}
		values = append(values, strings.TrimSpace(line[len(prefix):]))
	}
	return values
}
