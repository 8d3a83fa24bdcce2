/*
Package metrics provides Prometheus collectors for ingestion, transcoding and
delivery.

Collectors are registered against an injected prometheus.Registerer so tests
and multiple servers in one process do not collide on the default registry.

Available metrics:
  - vidaq_uploads_total{result}: upload outcomes (hit, created, rejected, failed)
  - vidaq_transcodes_total{outcome}: finished renders (success, failure)
  - vidaq_transcode_duration_seconds: probe+render wall time
  - vidaq_transcodes_in_flight: renders holding a concurrency slot
  - vidaq_manifest_rewrites_total: playlists rewritten and persisted
  - vidaq_http_requests_total{route,code}: gateway requests
  - vidaq_http_request_duration_seconds{route}: gateway latency
*/
package metrics
