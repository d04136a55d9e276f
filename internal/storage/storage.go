package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"wrappertest/internal/logger"
)

var ErrInvalidArtifactName = errors.New("invalid artifact name")

// CheckFileExistence reports whether filePath exists.
func CheckFileExistence(filePath string) bool {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		logger.Debug("file does not exist", zap.String("path", filePath))
		return false
	}
	return true
}

// WriteToFile truncates filePath and writes data to it.
func WriteToFile(filePath string, data []byte) error {
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return fmt.Errorf("error opening file '%s': %w", filePath, err)
	}

	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			logger.Warn("error closing file", zap.String("path", filePath), zap.Error(err))
		}
	}(file)

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("error writing file '%s': %w", filePath, err)
	}

	return nil
}

func ReadFromFile(filePath string) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening file '%s': %w", filePath, err)
	}

	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			logger.Warn("error closing file", zap.String("path", filePath), zap.Error(err))
		}
	}(file)

	byteVal, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("error reading file '%s': %w", filePath, err)
	}

	return byteVal, nil
}

// SaveArtifact writes data to dir/name, creating dir if needed, and returns
// the path written. An existing file is overwritten. name must be a plain
// file name.
func SaveArtifact(dir, name string, data []byte) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidArtifactName, name)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("error creating directory '%s': %w", dir, err)
	}

	filePath := filepath.Join(dir, name)
	if CheckFileExistence(filePath) {
		logger.Debug("overwriting artifact", zap.String("path", filePath))
	}

	if err := WriteToFile(filePath, data); err != nil {
		return "", err
	}

	return filePath, nil
}
