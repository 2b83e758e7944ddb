package apperror

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is full")
	ErrSelfJoinForbidden = errors.New("you cannot join your own room")
	ErrCreationFailed    = errors.New("room creation failed")
	ErrWriteFailed       = errors.New("room write failed")
	ErrStaleWrite        = errors.New("room changed since it was last observed")
	ErrCodeTaken         = errors.New("room code is already taken")
)
