// Package extension provides run-time registries for user-supplied outbound
// notification channels and their Go payload types.
//
// The registries are normally modified through the public APIs under the
// root gatekeeper package, therefore most applications do not need to import
// this package directly.
package extension
