// Package store defines interfaces for data persistence operations and the
// error vocabulary shared by every implementation. Business logic depends on
// these interfaces only, never on a concrete database.
package store
