package segment

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated indicates a buffer shorter than the header or the declared payload.
	ErrTruncated = errors.New("segment truncated")

	// ErrUnknownKind indicates a kind tag other than DATA or ACK.
	ErrUnknownKind = errors.New("unknown segment kind")

	// ErrPayloadTooLarge indicates a declared length above the payload capacity.
	ErrPayloadTooLarge = errors.New("segment payload exceeds capacity")
)

// DecodeError is returned by Decode for any buffer that does not hold a
// recognizable segment.
type DecodeError struct {
	// Size is the length of the rejected buffer.
	Size int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode segment (%d bytes): %v", e.Size, e.Err)
}

// Unwrap returns the underlying reason so callers can use errors.Is.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
