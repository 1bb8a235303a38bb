// Package storage implements the filesystem and download primitives the
// cache is built on.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/vidcache/vidcache/vidcache"
)

// Disk implements [vidcache.Storage] over the local filesystem.
type Disk struct{}

var _ vidcache.Storage = Disk{}

func NewDisk() Disk {
	return Disk{}
}

func (Disk) Stat(path string) (vidcache.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return vidcache.FileInfo{}, nil
		}
		return vidcache.FileInfo{}, fmt.Errorf("couldn't stat %q: %w", path, err)
	}

	return vidcache.FileInfo{
		Exists:  true,
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (Disk) ListDirectory(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("couldn't read dir %q: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

func (Disk) MakeDirectory(path string) error {
	err := os.MkdirAll(path, 0o777)
	if err != nil {
		return fmt.Errorf("couldn't create dir %q: %w", path, err)
	}
	return nil
}

func (Disk) Delete(path string) error {
	err := os.RemoveAll(path)
	if err != nil {
		return fmt.Errorf("couldn't remove %q: %w", path, err)
	}
	return nil
}
