// Package main provides the entry point for linkport-cli.
//
// The CLI asks a running link listener to open workspace files:
//
//	linkport-cli open pkg/File.java --line 42
//	linkport-cli open pkg/File.java:42
//	linkport-cli ping
//	linkport-cli -o json version
package main
