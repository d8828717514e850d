package application

import "errors"

var (
	ErrUnitNotFound     = errors.New("billing app: unit not found")
	ErrUnitAccessDenied = errors.New("billing app: unit access denied")
	ErrInactiveAccount  = errors.New("billing app: inactive account")
)
