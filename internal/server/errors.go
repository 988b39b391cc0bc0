package server

import "errors"

var (
	ErrAlreadyRunning   = errors.New("server: already running")
	ErrNotRunning       = errors.New("server: not running")
	ErrPeerNotFound     = errors.New("server: peer not found")
	ErrPeerNotConnected = errors.New("server: peer not connected")
	ErrSendFailed       = errors.New("server: send failed")
)
