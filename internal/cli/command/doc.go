// Package command provides CLI command definitions for linkport-cli.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: Root command and global flags
//   - open.go: Ask a running listener to open a file
//   - ping.go: Check that a listener answers
//   - version.go: Print build information
//
// Commands parse their flags, talk to the listener through
// connection.LinkClient and print results through the output package.
package command
