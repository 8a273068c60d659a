package conference

import "errors"

var (
	ErrDuplicateName = errors.New("user already exists")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyBound  = errors.New("already joined")
	ErrRoomClosed    = errors.New("room is closed")
	ErrInvalidName   = errors.New("invalid name")
)
