// Package playback resolves catalog items to playlist URLs for delivery.
//
// Locate checks that the item exists and that its artifacts are committed,
// then rewrites the stored playlist for the requesting host on first access
// and persists the result. Rewrites for one item are serialized; when an item
// is served under several hosts the persisted playlist tracks the most recent
// host and earlier hosts are rewritten again on their next request.
package playback
