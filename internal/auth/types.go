package auth

import "time"

// DefaultRole is assigned to identities created without an explicit role.
const DefaultRole = "employee"

// User is a stored identity record. Email is unique and compared
// case-sensitively, exactly as it was submitted.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string `json:"-"`
	Role         string
	CreatedAt    time.Time
}

// PublicUser is the client-facing projection of a User; it never carries the
// password verifier.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Public strips the verifier and bookkeeping fields.
func (u *User) Public() PublicUser {
	if u == nil {
		return PublicUser{}
	}
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Identity holds the verified claims of a bearer token. It lives only in the
// context of the request that presented the token.
type Identity struct {
	SubjectID string
	Email     string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
