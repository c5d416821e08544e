// Package connection provides the linkport-cli client for the link listener.
//
// The listener speaks a fixed subset of HTTP/1.0: one GET request line plus
// headers per connection, answered by a bodiless 204. LinkClient writes that
// request directly on a TCP connection so the request line reaches the
// listener exactly as built.
package connection
