package editor

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/yndnr/linkport/internal/core/domain"
	"github.com/yndnr/linkport/internal/core/service"
)

// WindowID is the single window a standalone host exposes.
const WindowID = "workspace"

// launchTimeout bounds how long starting an editor process may take.
const launchTimeout = 10 * time.Second

// Editor is an editor opened by Host.
type Editor struct {
	rule Rule
	rel  string
	abs  string
}

// Path implements service.EditorHandle.
func (e *Editor) Path() string {
	return e.rel
}

// ID returns the editor rule id.
func (e *Editor) ID() string {
	return e.rule.ID
}

// Host implements service.Host on top of external editor commands.
type Host struct {
	registry  *Registry
	workspace *Workspace
	runner    Runner
	logger    *slog.Logger
}

var _ service.Host = (*Host)(nil)

// New creates a Host. A nil runner uses ExecRunner.
func New(registry *Registry, workspace *Workspace, runner Runner, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = &ExecRunner{Logger: logger}
	}
	return &Host{
		registry:  registry,
		workspace: workspace,
		runner:    runner,
		logger:    logger,
	}
}

// ResolveEditors implements service.Host.
func (h *Host) ResolveEditors(name string) []service.EditorDescriptor {
	return h.registry.Resolve(name)
}

// OpenEditor implements service.Host.
func (h *Host) OpenEditor(w service.Window, rel string, editorID string) (service.EditorHandle, error) {
	rule, ok := h.registry.Rule(editorID)
	if !ok {
		return nil, domain.ErrNoEditor.WithDetails("unknown editor " + strconv.Quote(editorID))
	}
	abs, err := h.workspace.Resolve(rel)
	if err != nil {
		return nil, err
	}

	ed := &Editor{rule: rule, rel: rel, abs: abs}
	if err := h.run(rule.Command, ed, 0); err != nil {
		return nil, domain.ErrNavigation.WithDetails("open " + rel).WithCause(err)
	}
	h.logger.Info("opened editor", "path", rel, "editor", rule.ID, "window", w.ID)
	return ed, nil
}

// SelectLine implements service.Host. Lines past the end of the file are
// reported as ErrBadLine.
func (h *Host) SelectLine(e service.EditorHandle, line int) error {
	ed, ok := e.(*Editor)
	if !ok {
		return domain.ErrNavigation.WithDetails("foreign editor handle")
	}
	if len(ed.rule.GotoCommand) == 0 {
		h.logger.Debug("editor has no goto command, line ignored", "editor", ed.rule.ID, "line", line)
		return nil
	}

	n, err := LineCount(ed.abs)
	if err != nil {
		return domain.ErrNavigation.WithDetails("read " + ed.rel).WithCause(err)
	}
	if line < 1 || line > n {
		return domain.ErrBadLine.WithDetails(strconv.Itoa(line) + " in " + ed.rel)
	}

	if err := h.run(ed.rule.GotoCommand, ed, line); err != nil {
		return domain.ErrNavigation.WithDetails("goto " + ed.rel).WithCause(err)
	}
	return nil
}

// ActiveWindow implements service.Host.
func (h *Host) ActiveWindow() (service.Window, bool) {
	return service.Window{ID: WindowID}, true
}

// Windows implements service.Host.
func (h *Host) Windows() []service.Window {
	return []service.Window{{ID: WindowID}}
}

func (h *Host) run(argv []string, ed *Editor, line int) error {
	vars := map[string]string{
		"file": ed.abs,
		"path": ed.rel,
		"root": h.workspace.Root(),
		"line": strconv.Itoa(line),
	}
	if line == 0 {
		vars["line"] = "1"
	}

	ctx, cancel := context.WithTimeout(context.Background(), launchTimeout)
	defer cancel()

	argv = expand(argv, vars)
	h.logger.Debug("running editor command", "command", FormatCommand(argv))
	return h.runner.Run(ctx, argv)
}
