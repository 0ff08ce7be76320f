package repository

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrKYCNotFound  = errors.New("kyc record not found")
	ErrDuplicateKYC = errors.New("kyc record already exists for user")
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaks.
const uniqueViolation = "23505"
