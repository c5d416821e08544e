// Package shutdown provides graceful shutdown for linkport.
//
// This package handles process termination signals:
//
//   - Signal handling (SIGINT, SIGTERM) as context cancellation
//   - Timeout-bounded cleanup
//   - Cleanup hook registration, run in reverse order
//
// Usage:
//
//	ctx, stop := shutdown.WithSignals(context.Background())
//	defer stop()
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(srv.Shutdown)
//	err := h.Wait(ctx) // returns after hooks ran
package shutdown
