package users

import "errors"

var (
	ErrNotFound            = errors.New("users: not found")
	ErrEmailTaken          = errors.New("users: email already registered")
	ErrInvalidCredentials  = errors.New("users: invalid credentials")
	ErrAccountNotActive    = errors.New("users: account not active")
	ErrPrimaryAdmin        = errors.New("users: primary admin cannot be modified")
	ErrMailerNotConfigured = errors.New("users: password mailer not configured")
)
