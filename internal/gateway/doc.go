// Package gateway exposes the HTTP surface of vidaq: multipart uploads,
// playlist URL lookups, static delivery of rendered HLS artifacts, health and
// Prometheus metrics.
//
// Handlers translate service errors into status codes with
// services.HTTPStatus and never hold state of their own; deduplication,
// rendering and manifest rewriting live in the ingest and playback packages.
package gateway
