// Package events decouples services from the side effects of their writes.
//
// A service emits an Event after a successful mutation; handlers registered
// for that event type (for example the welcome email job) run without the
// service knowing about them.
package events
