package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotImage is returned for uploads whose extension is not an allowed image type.
var ErrNotImage = errors.New("file type not allowed")

// URLPrefix is the public path under which stored images are served.
const URLPrefix = "/uploads"

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// Store persists uploaded images under a single directory, assigning each a
// collision-resistant name and returning the URL it will be served from.
type Store struct {
	dir string
}

// NewStore creates the upload directory if needed and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("upload directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save validates the upload's extension, writes it under a fresh uuid name,
// and returns the serving URL. The original filename is never reused.
func (s *Store) Save(file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(file.Filename)))
	if !allowedExtensions[ext] {
		return "", ErrNotImage
	}

	name := uuid.New().String() + ext
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	return URLPrefix + "/" + name, nil
}

// FilePath resolves a stored filename to its on-disk path, rejecting anything
// that would escape the upload directory.
func (s *Store) FilePath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", errors.New("invalid filename")
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	return path, nil
}
