// Package main provides the entry point for linkport-server.
//
// The server binds a loopback-only listener on port 7991 and turns
// "GET /<path>[?<line>]" requests into editor navigation inside a
// configured workspace. Every accepted connection is answered with a
// bodiless 204.
//
// Usage:
//
//	linkport-server [flags]
//	linkport-server -config /path/to/linkport.yaml
//
// Settings can also come from LINKPORT_* environment variables, for
// example LINKPORT_EDITOR__WORKSPACE or LINKPORT_LOG__LEVEL.
package main
