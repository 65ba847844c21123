// Package service holds the application use cases. Services orchestrate the
// stores, the cache and the event emitter; they return typed errors and
// never know about HTTP.
//
// Every successful write invalidates the affected cache family before the
// method returns, so a caller that sees success never reads a list cached
// before its own write.
package service
