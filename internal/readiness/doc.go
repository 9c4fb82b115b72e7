// Package readiness waits for a media server to accept websocket
// connections.
package readiness
