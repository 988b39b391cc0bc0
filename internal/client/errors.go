package client

import "errors"

var (
	ErrAlreadyConnected = errors.New("client: already connected")
	ErrNotConnected     = errors.New("client: not connected")
	ErrConnectionFailed = errors.New("client: connection failed")
	ErrConnectionClosed = errors.New("client: connection closed")
	ErrSendFailed       = errors.New("client: send failed")
	ErrTimeout          = errors.New("client: timed out")
)
