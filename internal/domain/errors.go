package domain

import "errors"

var (
	ErrRoomFull     = errors.New("room is full")
	ErrNameTaken    = errors.New("name is already taken in this room")
	ErrInvalidIndex = errors.New("index is out of range or protected")
	ErrNoResults    = errors.New("no results")
)
