// Package confloader provides configuration loading mechanism.
//
// This package implements a configuration loader that supports multiple
// sources using koanf as the underlying library.
//
// Features:
//
//   - Sources: YAML files, environment variables, key=value overrides
//   - Watch Support: callbacks when a watched config file changes
//   - Type Safety: unmarshaling into typed structs
//   - Defaults: values already present in the target struct are kept
//
// Priority (highest to lowest):
//
//  1. Overrides (linkport-server -set key=value)
//  2. Environment variables
//  3. Configuration file
//  4. Default values
//
// Environment variables use a double underscore between sections so that keys
// may contain single underscores: LINKPORT_LINK__DISPATCH_RATE sets
// link.dispatch_rate.
package confloader
