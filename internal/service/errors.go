package service

import "errors"

var (
	// ErrInvalidToken covers malformed, forged and expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrBadCredentials is returned when a login does not match the configured account.
	ErrBadCredentials = errors.New("username or password is incorrect")
	// ErrTokenUserInfo is returned when a token carries no user name.
	ErrTokenUserInfo = errors.New("can not get the user info from token")
	// ErrInvalidID is returned for identifiers that are not positive integers.
	ErrInvalidID = errors.New("id must be a positive integer")
)
