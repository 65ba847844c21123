// Package api holds the HTTP handlers and the error boundary.
//
// Handlers decode and validate requests, call the services, and write the
// response envelope from package shared. They never format errors
// themselves: every failure goes through HandleAPIError, which classifies
// it into a closed set of kinds (validation, auth, upload, storage, domain,
// malformed request, unknown) and decides what the client is allowed to see.
package api
