package fs

import (
	"io"
)

type File interface {
	io.WriteCloser
	Sync() error
}

type ReadFile interface {
	Size() int64
	io.ReaderAt
	io.ReadCloser
}

// Stats counts the I/O performed through a Filesys.
type Stats struct {
	ReadOps    int
	ReadBytes  int
	WriteOps   int
	WriteBytes int
}

// Filesys is a storage-specific API for accessing the file system.
//
// Note that an instance of this interface only exposes a single directory
// (there are no directory names in these methods).
//
// Callers are expected to follow some rules when calling this API:
// - Open: fname should exist
// - Create: fname should not exist
// - Delete: fname should exist
type Filesys interface {
	Open(fname string) (ReadFile, error)
	Create(fname string) (File, error)
	// List returns the names of all files, sorted.
	List() ([]string, error)
	Delete(fname string) error
	Rename(src, dst string) error
	GetStats() Stats
}

// ReadAll reads the whole of fname.
func ReadAll(fs Filesys, fname string) ([]byte, error) {
	f, err := fs.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data := make([]byte, f.Size())
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteAll removes every file.
func DeleteAll(fs Filesys) error {
	names, err := fs.List()
	if err != nil {
		return err
	}
	for _, n := range names {
		if err := fs.Delete(n); err != nil {
			return err
		}
	}
	return nil
}
