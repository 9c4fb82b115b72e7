// Package remote runs a media server on another host over SSH.
//
// The launch script and configuration are rendered locally, streamed to a
// temporary directory on the remote host and started in the background.
// The remote workspace is left in place after the server stops so that it
// can be inspected.
package remote
