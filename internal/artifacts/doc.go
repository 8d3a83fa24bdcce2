// Package artifacts owns the on-disk layout of rendered HLS output.
//
// Each catalog item owns <root>/<id>/ holding <base>.m3u8 and its segments.
// Renders are produced in <root>/.staging/<fingerprint>/ and committed by a
// single rename, so an item directory either does not exist or is complete.
package artifacts
