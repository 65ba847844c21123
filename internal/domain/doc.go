// Package domain contains the core business entities, value objects, and
// domain errors of the application, independent of any specific
// infrastructure or delivery mechanism.
package domain
