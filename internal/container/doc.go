// Package container runs a media server in a docker container.
//
// The docker engine is driven through the Engine interface; CLI implements
// it on top of the docker command line client. Container names are guarded
// by a file lock so that concurrent test binaries on one host do not remove
// each other's containers halfway through creation.
package container
