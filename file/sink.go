package file

import (
	"bufio"
	"hash"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

// Sink is an append-only output file. Writes are buffered and hashed as they
// pass through so the receiver can report a digest once the transfer ends.
type Sink struct {
	FileName string

	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	hash    hash.Hash
	written int64
	closed  bool
}

// CreateSink creates (or truncates) the output file at path.
func CreateSink(path string) (*Sink, error) {
	safePath, err := ValidatePath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(safePath)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "CreateSink",
			"file_name": safePath,
			"error":     err.Error(),
		}).Error("Failed to create output file")
		return nil, err
	}

	// blake2b.New256 only fails for keys longer than 64 bytes.
	h, _ := blake2b.New256(nil)

	logrus.WithFields(logrus.Fields{
		"function":  "CreateSink",
		"file_name": safePath,
	}).Debug("Output file created")

	return &Sink{
		FileName: safePath,
		file:     f,
		writer:   bufio.NewWriter(f),
		hash:     h,
	}, nil
}

// Write appends p to the file.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, os.ErrClosed
	}

	n, err := s.writer.Write(p)
	s.hash.Write(p[:n])
	s.written += int64(n)
	return n, err
}

// Close flushes buffered data and closes the file. Subsequent calls are no-ops.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	flushErr := s.writer.Flush()
	closeErr := s.file.Close()
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return closeErr
	}

	logrus.WithFields(logrus.Fields{
		"function":  "Sink.Close",
		"file_name": s.FileName,
		"written":   s.written,
	}).Info("Output file closed")

	return nil
}

// Written returns the number of bytes appended so far.
func (s *Sink) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Digest returns the hex BLAKE2b-256 digest of everything written so far.
func (s *Sink) Digest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return encodeDigest(s.hash.Sum(nil))
}
