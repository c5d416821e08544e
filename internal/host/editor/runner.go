package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Runner launches editor commands.
type Runner interface {
	Run(ctx context.Context, argv []string) error
}

// ExecRunner starts commands as detached child processes. It returns once
// the process has started; the exit status is only logged, since GUI
// editors commonly outlive the request that opened them.
type ExecRunner struct {
	Logger *slog.Logger
}

// Run implements Runner. ctx only gates the start; cancelling it later does
// not kill the editor.
func (r *ExecRunner) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", FormatCommand(argv), err)
	}

	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Warn("editor command exited with error", "command", FormatCommand(argv), "error", err)
		}
	}()
	return nil
}

// FormatCommand returns a shell-like string for logging only (no execution).
func FormatCommand(argv []string) string {
	q := make([]string, 0, len(argv))
	for _, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\n'\"") {
			q = append(q, fmt.Sprintf("%q", a))
		} else {
			q = append(q, a)
		}
	}
	return strings.Join(q, " ")
}

// expand substitutes placeholders in every argument of argv.
func expand(argv []string, vars map[string]string) []string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	rep := strings.NewReplacer(pairs...)

	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = rep.Replace(a)
	}
	return out
}
