// Package domain defines the core domain model of linkport.
//
// Domain values are pure and carry no IO dependencies:
//
//   - HeaderSet: raw header lines read from one connection
//   - NavigationCommand: the validated "open path at line" instruction
//   - Request-line parsing for the GET grammar accepted by the listener
//   - Errors: structured domain error codes
package domain
