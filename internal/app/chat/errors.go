package chat

import "errors"

var (
	// ErrRoomFull is returned when a solo room already holds two members.
	ErrRoomFull = errors.New("room is full")

	// ErrNoActiveRoom is returned when a room-scoped event arrives before a join.
	ErrNoActiveRoom = errors.New("no active room")

	// ErrChatNotJoined is returned when a private message names a chat the sender is not in.
	ErrChatNotJoined = errors.New("private chat not joined")

	// ErrConnClosed is returned for operations on a connection that is being torn down.
	ErrConnClosed = errors.New("connection closed")

	// ErrSendQueueFull is returned when a connection's outbound queue cannot take a frame.
	ErrSendQueueFull = errors.New("send queue full")
)
