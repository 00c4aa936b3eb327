package file

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/peiranqiu/File-Transfer/limits"
	"github.com/sirupsen/logrus"
)

// ErrDirectoryTraversal indicates a path containing parent directory components.
var ErrDirectoryTraversal = errors.New("path contains directory traversal")

// ErrNotRegular indicates a path that does not name a regular file.
var ErrNotRegular = errors.New("not a regular file")

// ValidatePath checks if a file path is safe from directory traversal.
// It returns the cleaned path or an error if the path contains traversal attempts.
func ValidatePath(path string) (string, error) {
	cleanedPath := filepath.Clean(path)

	for _, part := range strings.Split(filepath.ToSlash(cleanedPath), "/") {
		if part == ".." {
			return "", ErrDirectoryTraversal
		}
	}

	return cleanedPath, nil
}

// ReadSource loads an input file after checking that its size is within
// limits.MaxFileSize. The whole file is returned since the sender keeps every
// segment in memory for the duration of the transfer.
func ReadSource(path string) ([]byte, error) {
	safePath, err := ValidatePath(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(safePath)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "ReadSource",
			"file_name": safePath,
			"error":     err.Error(),
		}).Error("Failed to stat input file")
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotRegular
	}
	if err := limits.ValidateFileSize(info.Size()); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "ReadSource",
			"file_name": safePath,
			"file_size": info.Size(),
			"error":     err.Error(),
		}).Error("Input file size rejected")
		return nil, err
	}

	data, err := os.ReadFile(safePath)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":  "ReadSource",
		"file_name": safePath,
		"file_size": len(data),
	}).Info("Input file loaded")

	return data, nil
}
