// Package render produces the media server's launch script and config
// file from embedded templates.
package render
