// Package command provides CLI command definitions for linkport-cli.
package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/linkport/internal/cli/connection"
)

// OpenCommand returns the open command.
func OpenCommand() *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Open a workspace file in the editor host",
		ArgsUsage: "<path>[:line]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "line",
				Aliases: []string{"l"},
				Usage:   "Line to select (1-based)",
			},
		},
		Action: openFile,
	}
}

type openResult struct {
	Request string        `json:"request" yaml:"request"`
	Status  int           `json:"status" yaml:"status"`
	Server  string        `json:"server" yaml:"server"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

func openFile(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one path argument")
	}

	path, line, err := splitTarget(c.Args().First(), c.Int("line"))
	if err != nil {
		return err
	}

	client := newClient(c)
	status, err := client.Open(c.Context, path, line)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	return printResult(c, openResult{
		Request: connection.BuildRequestLine(path, line),
		Status:  status.Code,
		Server:  status.Server,
		Elapsed: status.Elapsed,
	})
}

// splitTarget accepts "path:line" when no explicit line flag is given.
func splitTarget(arg string, line int) (string, int, error) {
	if line < 0 {
		return "", 0, fmt.Errorf("line must be positive, got %d", line)
	}
	if line > 0 {
		return arg, line, nil
	}

	if i := strings.LastIndexByte(arg, ':'); i > 0 {
		if n, err := strconv.Atoi(arg[i+1:]); err == nil {
			if n <= 0 {
				return "", 0, fmt.Errorf("line must be positive, got %d", n)
			}
			return arg[:i], n, nil
		}
	}
	return arg, 0, nil
}
