// Package permission implements the console's string permission model.
//
// A permission is a colon separated triple such as "system:user:list". The
// value "*:*:*" grants everything. Roles map to sets of permissions through a
// [RoleManager] that is configured at startup and frozen before use.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. It is used by
// the console package to answer UI permission checks and by the dev backend
// guard to authorize routes.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import consoleauth, jwt, or session.
//   - Interpret partial wildcards such as "system:*:list".
package permission
