package storage

import "errors"

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionExists     = errors.New("session already exists")
	ErrCommunityNotFound = errors.New("community not found")
	ErrCommunityExists   = errors.New("community already exists")
	ErrAlreadyMember     = errors.New("already a member")
	ErrNotMember         = errors.New("not a member")
	ErrInvalidData       = errors.New("invalid data")
)
