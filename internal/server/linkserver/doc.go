// Package linkserver provides the loopback navigation listener.
//
// The listener accepts one TCP connection at a time on 127.0.0.1:7991, reads
// an HTTP/1.0-shaped header block, answers every connection with the same
// body-less 204 response and, when the peer and every Host header are
// loopback and the request line parses, hands the resulting
// NavigationCommand to the dispatcher.
//
// Wire format of a request:
//
//	GET /<relative-path>[?<line>] HTTP/1.0\r\n
//	Host: localhost:7991\r\n
//	\r\n
//
// The listener never returns navigation outcomes to the network.
package linkserver
