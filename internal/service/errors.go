package service

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrBadPassword       = errors.New("bad password")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrFollowSelf        = errors.New("cannot follow self")
	ErrNotFollowing      = errors.New("not following user")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenInvalid      = errors.New("token invalid")
)
