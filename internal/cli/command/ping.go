// Package command provides CLI command definitions for linkport-cli.
package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:   "ping",
		Usage:  "Check that a link listener answers (never opens anything)",
		Action: ping,
	}
}

type pingResult struct {
	Addr    string        `json:"addr" yaml:"addr"`
	Server  string        `json:"server" yaml:"server"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

func ping(c *cli.Context) error {
	client := newClient(c)
	status, err := client.Ping(c.Context)
	if err != nil {
		return fmt.Errorf("ping %s: %w", client.Addr(), err)
	}

	return printResult(c, pingResult{
		Addr:    client.Addr(),
		Server:  status.Server,
		Elapsed: status.Elapsed,
	})
}
