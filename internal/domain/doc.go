// Package domain holds the runtime's shared error values.
//
// It sits below every other internal package and imports nothing from the
// module, so the root package, internal/app and the plugins can all agree on
// the same sentinels.
package domain
