package auth

import "errors"

var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")

	// ErrInvalidCredentials is returned by Login for an unknown email and for a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	ErrMissingCredential = errors.New("auth: missing credential")
	ErrInvalidCredential = errors.New("auth: invalid or expired credential")

	ErrEncoding       = errors.New("auth: password cannot be encoded")
	ErrVerifierFormat = errors.New("auth: malformed password verifier")
	ErrMissingSecret  = errors.New("auth: signing secret is not configured")
)
