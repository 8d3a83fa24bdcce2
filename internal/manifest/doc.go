// Package manifest re-roots HLS playlist references at the host serving them.
//
// Freshly rendered playlists name their segments by bare relative file name.
// Rewrite turns those references into absolute URLs of the form
// <host>/<route>/<id>/<file> and is a no-op when the playlist already targets
// the requested host. Two modes exist: ModeLine touches only URI lines and
// URI="..." tag attributes; ModeCoarse replaces every occurrence of the
// playlist base name, matching how older deployments rewrote playlists.
package manifest
