// Package textutil provides filename sanitization shared by the artifact
// layout and upload staging.
//
// Names are NFC-normalized so visually identical uploads map to the same
// on-disk name, and characters that are unsafe in paths or would need escaping
// inside playlist URIs are replaced.
package textutil
