package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrFileNotFound = errors.New("filesystem: file not found")
	ErrInvalidPath  = errors.New("filesystem: invalid path")
)

// Filesystem is the read-only store static files are served from. Stat
// reports the size of a regular file; directories count as not found.
type Filesystem interface {
	Stat(path string) (int64, error)
	Open(path string) (io.ReadCloser, error)
}

type localFileSystem struct {
}

func NewLocalFileSystem() Filesystem {
	return &localFileSystem{}
}

func (filesystem *localFileSystem) Stat(path string) (int64, error) {
	if path == "" {
		return 0, ErrInvalidPath
	}

	info, err := os.Stat(filepath.FromSlash(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}

	return info.Size(), nil
}

func (filesystem *localFileSystem) Open(path string) (io.ReadCloser, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}

	file, err := os.Open(filepath.FromSlash(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return nil, err
	}

	return file, nil
}

// fsFileSystem serves from an fs.FS such as an embed.FS. Leading slashes are
// dropped since fs.FS paths are unrooted.
type fsFileSystem struct {
	fsys fs.FS
}

func NewFSFileSystem(fsys fs.FS) Filesystem {
	return &fsFileSystem{fsys: fsys}
}

func (filesystem *fsFileSystem) name(path string) (string, error) {
	name := strings.TrimLeft(path, "/")
	if name == "" {
		name = "."
	}
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	return name, nil
}

func (filesystem *fsFileSystem) Stat(path string) (int64, error) {
	name, err := filesystem.name(path)
	if err != nil {
		return 0, err
	}

	info, err := fs.Stat(filesystem.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}

	return info.Size(), nil
}

func (filesystem *fsFileSystem) Open(path string) (io.ReadCloser, error) {
	name, err := filesystem.name(path)
	if err != nil {
		return nil, err
	}

	file, err := filesystem.fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return nil, err
	}

	return file, nil
}

// Close closes rc and logs instead of returning the error; for read-only
// files there is nothing a caller could do about it.
func Close(rc io.Closer, path string) {
	if err := rc.Close(); err != nil {
		slog.Error("closing file error", "path", path, "error", err)
	}
}

// Exists reports whether path names a regular file.
func Exists(filesystem Filesystem, path string) (bool, error) {
	_, err := filesystem.Stat(path)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// GetFileExtension returns the extension of path without the leading dot,
// lowercased.
func GetFileExtension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
