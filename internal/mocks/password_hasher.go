package mocks

import (
	"errors"
	"strings"

	"github.com/PitokDf/express-app-useable/internal/service/auth"
)

// ErrMockPasswordMismatch is returned by MockPasswordHasher.Compare on mismatch.
var ErrMockPasswordMismatch = errors.New("mock: password mismatch")

// MockPasswordHasher implements auth.PasswordHasher without bcrypt's cost.
// Hash returns "hashed:" + password and Compare checks that format.
type MockPasswordHasher struct {
	HashFn    func(password string) (string, error)
	CompareFn func(hashedPassword, password string) error

	// CompareCallCount tracks how many times Compare was called
	CompareCallCount int
}

var _ auth.PasswordHasher = (*MockPasswordHasher)(nil)

// Hash implements auth.PasswordHasher
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	if m.HashFn != nil {
		return m.HashFn(password)
	}
	return "hashed:" + password, nil
}

// Compare implements auth.PasswordHasher
func (m *MockPasswordHasher) Compare(hashedPassword, password string) error {
	m.CompareCallCount++
	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	if strings.TrimPrefix(hashedPassword, "hashed:") != password || !strings.HasPrefix(hashedPassword, "hashed:") {
		return ErrMockPasswordMismatch
	}
	return nil
}
