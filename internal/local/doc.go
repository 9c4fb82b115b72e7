// Package local runs a media server as a child process of the test binary,
// in a freshly created workspace directory.
package local
