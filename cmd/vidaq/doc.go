// Package main hosts the vidaq CLI entrypoint and command graph.
//
// `vidaq serve` runs the ingest and delivery server in the foreground. The
// remaining commands work offline against the configuration and catalog:
// scaffolding and validating config, listing catalog items and orphans,
// computing fingerprints, and reporting dependency and server status.
package main
