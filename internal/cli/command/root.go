// Package command provides CLI command definitions for linkport-cli.
package command

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/linkport/internal/cli/connection"
	"github.com/yndnr/linkport/internal/cli/output"
	"github.com/yndnr/linkport/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "linkport-cli",
		Usage:   "Ask a running link listener to open files",
		Version: buildinfo.Banner("linkport-cli"),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			OpenCommand(),
			PingCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "addr",
			Aliases: []string{"a"},
			Usage:   "Link listener address",
			EnvVars: []string{"LINKPORT_ADDR"},
			Value:   connection.DefaultAddr,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Timeout for one request",
			Value: connection.DefaultTimeout,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Addr    string
	Timeout time.Duration
	Output  string
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Addr:    c.String("addr"),
		Timeout: c.Duration("timeout"),
		Output:  c.String("output"),
	}
}

// newClient creates a link client from the global flags.
func newClient(c *cli.Context) *connection.LinkClient {
	flags := ParseGlobalFlags(c)
	return connection.NewLinkClient(flags.Addr, flags.Timeout)
}

// printResult writes data in the selected output format.
func printResult(c *cli.Context, data any) error {
	format, err := output.ParseFormat(ParseGlobalFlags(c).Output)
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(writer(c), data)
}

func writer(c *cli.Context) io.Writer {
	if c.App != nil && c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

// PrintError prints a command failure to w, which is stderr in the binary.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}
