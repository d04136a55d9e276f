package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFileExistence(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "testfile.txt")

	require.NoError(t, WriteToFile(filePath, nil), "Failed to create test file")

	assert.True(t, CheckFileExistence(filePath), "Expected file to exist")

	require.NoError(t, os.Remove(filePath))

	assert.False(t, CheckFileExistence(filePath), "Expected file to not exist")
}

func TestWriteAndReadFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "testfile.txt")

	require.NoError(t, WriteToFile(filePath, []byte("Hello, World!")))
	require.NoError(t, WriteToFile(filePath, []byte("Hi")))

	data, err := ReadFromFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, "Hi", string(data), "WriteToFile should truncate")
}

func TestReadFromFileMissing(t *testing.T) {
	_, err := ReadFromFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestSaveArtifact(t *testing.T) {
	t.Run("creates directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out", "nested")

		path, err := SaveArtifact(dir, "test_1_tts.wav", []byte{0x52, 0x49, 0x46, 0x46})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "test_1_tts.wav"), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x52, 0x49, 0x46, 0x46}, data)
	})

	t.Run("rejects path names", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")

		for _, name := range []string{"../escaped.mp3", "sub/file.mp3", `..\escaped.mp3`, "..", ""} {
			_, err := SaveArtifact(dir, name, []byte("x"))
			assert.ErrorIs(t, err, ErrInvalidArtifactName, name)
		}
		assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "escaped.mp3"))
	})

	t.Run("overwrites existing", func(t *testing.T) {
		dir := t.TempDir()

		_, err := SaveArtifact(dir, "combined_voice_8.pt", []byte("old contents"))
		require.NoError(t, err)
		path, err := SaveArtifact(dir, "combined_voice_8.pt", []byte("new"))
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})
}
