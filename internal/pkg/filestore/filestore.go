package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes uploaded and extracted files under two local directories.
// Names are random tokens; no cleanup or quota policy exists.
type Store struct {
	uploadsDir string
	extractDir string
}

func New(uploadsDir, extractDir string) (*Store, error) {
	for _, dir := range []string{uploadsDir, extractDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s failed: %w", dir, err)
		}
	}
	return &Store{uploadsDir: uploadsDir, extractDir: extractDir}, nil
}

func (s *Store) ExtractDir() string {
	return s.extractDir
}

// SaveUploadedImage writes image bytes under a fresh random name, keeping the
// original extension when it looks like one.
func (s *Store) SaveUploadedImage(data []byte, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".png"
	}
	path := filepath.Join(s.uploadsDir, uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write uploaded image failed: %w", err)
	}
	return path, nil
}

// SaveDocument writes an uploaded source document next to the uploads,
// prefixed with a random token so repeated uploads never collide.
func (s *Store) SaveDocument(data []byte, originalName string) (string, error) {
	name := uuid.NewString() + "_" + filepath.Base(originalName)
	path := filepath.Join(s.uploadsDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write uploaded document failed: %w", err)
	}
	return path, nil
}
