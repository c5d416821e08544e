// Package service provides the request services of linkport.
//
// Services hold the logic between the listener and the editor host. They
// depend on small interfaces (Resolver, Host, Executor) so each piece can be
// tested without sockets or a real editor.
//
// This package contains:
//
//   - OriginValidator: loopback-only checks on the peer and Host headers
//   - Dispatcher: hands NavigationCommands to the host on its UI executor
//   - UIExecutor: single goroutine task queue standing in for a UI thread
//
// Only requests that passed OriginValidator may reach the Dispatcher.
package service
