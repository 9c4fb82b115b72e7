// Package fileutil provides the small file helpers used to lay out server
// workspaces and to collect their log files into the test output folder.
package fileutil
