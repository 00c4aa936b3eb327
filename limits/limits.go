// Package limits provides the fixed protocol bounds of the Go-Back-N transfer.
// Both endpoints validate against these values before touching the network.
package limits

import (
	"errors"
	"fmt"
)

const (
	// PayloadSize is the payload capacity of a single data segment in bytes.
	// A data segment carrying fewer bytes than this marks the end of a transfer.
	PayloadSize = 512

	// MinWindow is the smallest accepted sliding window size.
	MinWindow = 1

	// MaxWindow is the largest accepted sliding window size.
	MaxWindow = 7

	// MaxFileSize is the largest file that may be transferred (256 * 512 - 1 bytes).
	// It keeps the segment count well inside the 16-bit sequence field.
	MaxFileSize = 256*PayloadSize - 1

	// MaxSegments is the largest number of data segments a transfer can produce,
	// including the empty terminator appended for exact multiples of PayloadSize.
	MaxSegments = MaxFileSize/PayloadSize + 1
)

var (
	// ErrWindowOutOfRange indicates a window size outside [MinWindow, MaxWindow].
	ErrWindowOutOfRange = errors.New("window size out of range")

	// ErrFileEmpty indicates an input file with no content.
	ErrFileEmpty = errors.New("empty file")

	// ErrFileTooLarge indicates an input file larger than MaxFileSize.
	ErrFileTooLarge = errors.New("file too large")
)

// ValidateWindow checks that a window size lies in [MinWindow, MaxWindow].
func ValidateWindow(window int) error {
	if window < MinWindow || window > MaxWindow {
		return fmt.Errorf("%w: got %d, want %d..%d", ErrWindowOutOfRange, window, MinWindow, MaxWindow)
	}
	return nil
}

// ValidateFileSize checks that a file size satisfies 0 < size <= MaxFileSize.
// Returns an error with context including the actual and maximum sizes.
func ValidateFileSize(size int64) error {
	if size <= 0 {
		return ErrFileEmpty
	}
	if size > MaxFileSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, size, MaxFileSize)
	}
	return nil
}
