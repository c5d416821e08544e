// Package editor implements the editor host linkport drives when it runs as
// a standalone process.
//
// There is no in-process IDE. Instead each editor is an external command
// from a Registry of rules, run inside a Workspace root:
//
//   - registry.go: pattern rules mapping file names or paths to editors
//   - workspace.go: path confinement and line counting
//   - runner.go: process launching
//   - host.go: the Host implementation used by the dispatcher
//
// Command arguments may contain the placeholders {file} (absolute path),
// {path} (workspace-relative path), {line} and {root}.
package editor
