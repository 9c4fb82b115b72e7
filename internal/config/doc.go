// Package config resolves the dotted properties that drive a media server
// (kms.ws.uri, kms.autostart, kms.scope, ...) and locates the YAML file they
// are loaded from.
//
// A property is looked up, in order, in explicit overrides set with Set, in
// the environment (KMSENV_ plus the name upper-cased with dots replaced by
// underscores), in the loaded file, and finally falls back to the default
// passed by the caller.
package config
