package service

import (
	"errors"
	"log/slog"
	"path"

	"golang.org/x/time/rate"

	"github.com/yndnr/linkport/internal/core/domain"
	"github.com/yndnr/linkport/internal/telemetry/metric"
)

// ErrRateLimited is returned when a dispatch exceeds the configured rate.
var ErrRateLimited = errors.New("service: dispatch rate exceeded")

// DispatcherConfig holds configuration for the Dispatcher.
type DispatcherConfig struct {
	// Rate is the maximum number of dispatches per second (0 disables the limit).
	Rate float64

	// Burst is the number of dispatches allowed at once (default: 5).
	Burst int
}

// DefaultDispatcherConfig returns the default configuration.
func DefaultDispatcherConfig() *DispatcherConfig {
	return &DispatcherConfig{
		Rate:  10,
		Burst: 5,
	}
}

// Dispatcher hands validated NavigationCommands to the editor host.
//
// Dispatch only schedules: navigation runs later on the executor, so the
// listener never waits for the host.
type Dispatcher struct {
	host     Host
	executor Executor
	limiter  *rate.Limiter
	logger   *slog.Logger
	metrics  *metric.Registry
}

// NewDispatcher creates a Dispatcher. cfg and metrics may be nil.
func NewDispatcher(host Host, executor Executor, cfg *DispatcherConfig, logger *slog.Logger, metrics *metric.Registry) *Dispatcher {
	if cfg == nil {
		cfg = DefaultDispatcherConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		host:     host,
		executor: executor,
		logger:   logger,
		metrics:  metrics,
	}
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}
	return d
}

// Dispatch schedules navigation for cmd on the UI executor.
//
// The returned error only reports scheduling problems (rate limit, closed or
// busy executor). Navigation failures are logged by the executor task.
func (d *Dispatcher) Dispatch(cmd domain.NavigationCommand) error {
	if d.limiter != nil && !d.limiter.Allow() {
		d.metrics.RecordDispatch(metric.DispatchRateLimited)
		d.logger.Warn("navigation dropped by rate limit", "target", cmd.String())
		return ErrRateLimited
	}

	err := d.executor.Submit(func() {
		if err := d.Navigate(cmd); err != nil {
			d.metrics.RecordDispatch(metric.DispatchFailed)
			d.logger.Error("navigation failed", "target", cmd.String(), "error", err)
			return
		}
		d.metrics.RecordDispatch(metric.DispatchOpened)
	})
	if err != nil {
		d.metrics.RecordDispatch(metric.DispatchRefused)
		d.logger.Warn("navigation not scheduled", "target", cmd.String(), "error", err)
		return err
	}

	d.metrics.RecordDispatch(metric.DispatchScheduled)
	return nil
}

// Navigate opens cmd in the host. It must run on the UI executor.
//
// The active window is preferred; without one cmd is opened in every listed
// window. Navigation fails only when no listed window opened it.
func (d *Dispatcher) Navigate(cmd domain.NavigationCommand) error {
	if w, ok := d.host.ActiveWindow(); ok {
		return d.open(w, cmd)
	}

	windows := d.host.Windows()
	if len(windows) == 0 {
		return domain.ErrNoWindow
	}

	var errs []error
	for _, w := range windows {
		if err := d.open(w, cmd); err != nil {
			d.logger.Warn("window did not open target", "target", cmd.String(), "window", w.ID, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) == len(windows) {
		return errors.Join(errs...)
	}
	return nil
}

func (d *Dispatcher) open(w Window, cmd domain.NavigationCommand) error {
	editors := d.resolveEditors(cmd.RelativePath)
	if len(editors) == 0 {
		return domain.ErrNoEditor.WithDetails(cmd.RelativePath)
	}

	editor, err := d.host.OpenEditor(w, cmd.RelativePath, editors[0].ID)
	if err != nil {
		return err
	}
	d.logger.Debug("editor opened", "target", cmd.String(), "editor", editors[0].ID, "window", w.ID)

	if !cmd.HasLine() {
		return nil
	}
	return d.host.SelectLine(editor, cmd.Line)
}

// resolveEditors looks editors up by file name and by full relative path and
// keeps the full-path candidates when they are the more specific (longer) list.
func (d *Dispatcher) resolveEditors(relativePath string) []EditorDescriptor {
	byName := d.host.ResolveEditors(path.Base(relativePath))
	byPath := d.host.ResolveEditors(relativePath)
	if len(byPath) > len(byName) {
		return byPath
	}
	return byName
}
