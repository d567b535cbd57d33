// Package store defines the persistence interfaces used by the service and
// task layers, together with the sentinel errors those interfaces return.
// Concrete implementations live under internal/platform.
package store
