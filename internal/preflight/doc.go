// Package preflight provides readiness checks for the filesystem paths,
// external binaries and running server that vidaq depends on.
//
// These checks run in two contexts:
//   - "vidaq serve" calls RunAll before binding the gateway and refuses to
//     start when a required directory is unusable.
//   - The CLI "vidaq status" command prints every check, including whether a
//     server is answering on the configured bind address.
package preflight
