// Package mocks provides shared test doubles.
//
// MockUserStore and MockMailer are generated by mockgen (go.uber.org/mock) and
// are driven with gomock expectations. MockJWTService and MockPasswordHasher
// are hand-written with function fields for the cases where a canned
// behaviour reads better than an expectation.
package mocks
