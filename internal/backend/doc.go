// Package backend defines the contract shared by the three ways a media
// server can be provisioned: as a local process, as a docker container, or
// as a process on a remote host reached over SSH.
//
// The concrete handles live in the local, container and remote packages.
// This package holds the selection policy, the request every handle is
// built from, and helpers for log collection.
package backend
