package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrMessageInvalid = errors.New("protocol: invalid message")

	// ErrPayloadTooLarge reports a frame whose declared payload exceeds
	// the assembler limit. It matches ErrMessageInvalid under errors.Is.
	ErrPayloadTooLarge = fmt.Errorf("%w: payload too large", ErrMessageInvalid)
)
