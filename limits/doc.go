// Package limits provides centralized size and window constants for the
// Go-Back-N file transfer, together with the validation functions both
// command line programs run before any network activity.
//
// # Bounds
//
//   - PayloadSize (512 bytes): the capacity of one data segment. The last
//     segment of a file is shorter, which is the only end-of-transfer signal.
//
//   - MinWindow..MaxWindow (1..7): the sliding window size accepted by both
//     sender and receiver.
//
//   - MaxFileSize (131071 bytes): the largest transferable file.
//
// # Validation Functions
//
//	if err := limits.ValidateWindow(window); err != nil {
//	    // errors.Is(err, limits.ErrWindowOutOfRange)
//	}
//
//	if err := limits.ValidateFileSize(info.Size()); err != nil {
//	    // ErrFileEmpty or ErrFileTooLarge
//	}
//
// Sequence numbers are plain counters from zero. They are never reduced
// modulo the window size, so the window only bounds how many segments may be
// outstanding at once.
package limits
