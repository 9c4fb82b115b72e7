// Package sentinel defines a string-backed error type so that package level
// sentinel errors can be declared as constants.
//
// A const sentinel cannot be reassigned by importers, and because the type is
// comparable, errors.Is matches it anywhere in a wrapped chain.
package sentinel
