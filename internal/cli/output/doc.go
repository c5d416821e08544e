// Package output provides output formatting for linkport-cli.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: field/value table for a single result
//   - json.go: JSON output formatting
//   - yaml.go: YAML output formatting
package output
