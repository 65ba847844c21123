package domain

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Password length bounds. bcrypt ignores input beyond 72 bytes.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
	MaxNameLength     = 100
)

var validate = validator.New()

// User represents a registered account.
type User struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Password       string    `json:"-"` // Plaintext password, used temporarily during registration/updates
	HashedPassword string    `json:"-"` // Never expose password hash in JSON
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewUser creates a new User with a fresh ID and timestamps.
//
// The caller is responsible for hashing the password before storing the user.
func NewUser(name, email, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Email:     NormalizeEmail(email),
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// NormalizeEmail lower-cases and trims an email address so lookups and the
// unique constraint agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the User fields, returning a *ValidationError listing
// every violation.
func (u *User) Validate() error {
	verr := &ValidationError{}

	if u.ID == uuid.Nil {
		verr.Add("id", "ID cannot be empty")
	}
	validateName(verr, u.Name)
	validateEmail(verr, u.Email)

	if u.Password != "" {
		validatePassword(verr, u.Password)
	} else if u.HashedPassword == "" {
		verr.Add("password", "password cannot be empty")
	}

	return verr.OrNil()
}

// UserUpdate is a partial update. Nil fields are left untouched.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

// Empty reports whether the update changes nothing.
func (p UserUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Password == nil
}

// Apply validates the update and copies the set fields onto u. A new
// plaintext password is placed in u.Password for the caller to hash.
func (p UserUpdate) Apply(u *User) error {
	verr := &ValidationError{}

	if p.Name != nil {
		validateName(verr, strings.TrimSpace(*p.Name))
	}
	if p.Email != nil {
		validateEmail(verr, NormalizeEmail(*p.Email))
	}
	if p.Password != nil {
		validatePassword(verr, *p.Password)
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
	}
	if p.Password != nil {
		u.Password = *p.Password
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func validateName(verr *ValidationError, name string) {
	switch {
	case name == "":
		verr.Add("name", "name cannot be empty")
	case len(name) > MaxNameLength:
		verr.Add("name", "name must be at most 100 characters long")
	}
}

func validateEmail(verr *ValidationError, email string) {
	if email == "" {
		verr.Add("email", "email cannot be empty")
		return
	}
	if err := validate.Var(email, "email"); err != nil {
		verr.Add("email", "invalid email format")
	}
}

func validatePassword(verr *ValidationError, password string) {
	switch {
	case len(password) < MinPasswordLength:
		verr.Add("password", "password must be at least 6 characters long")
	case len(password) > MaxPasswordLength:
		verr.Add("password", "password must be at most 72 characters long")
	}
}
