package fs

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

func (s *Stats) readOp(bytes int) {
	s.ReadOps++
	s.ReadBytes += bytes
}

func (s *Stats) writeOp(bytes int) {
	s.WriteOps++
	s.WriteBytes += bytes
}

type aferoFs struct {
	fs afero.Afero
	*Stats
}

type readFile struct {
	afero.File
	size int64
	*Stats
}

func (f readFile) Size() int64 {
	return f.size
}

func (f readFile) Read(buf []byte) (int, error) {
	n, err := f.File.Read(buf)
	f.readOp(n)
	return n, err
}

func (f readFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.File.ReadAt(p, off)
	f.readOp(n)
	return n, err
}

func abs(fname string) string {
	return fmt.Sprintf("/%s", fname)
}

func (fs aferoFs) Open(fname string) (ReadFile, error) {
	f, err := fs.fs.Open(abs(fname))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", fname)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "stat %s", fname)
	}
	return readFile{f, st.Size(), fs.Stats}, nil
}

type writeFile struct {
	afero.File
	*Stats
}

func (f writeFile) Write(p []byte) (int, error) {
	n, err := f.File.Write(p)
	f.writeOp(n)
	return n, err
}

func (fs aferoFs) Create(fname string) (File, error) {
	f, err := fs.fs.Create(abs(fname))
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", fname)
	}
	return writeFile{f, fs.Stats}, nil
}

func (fs aferoFs) List() ([]string, error) {
	paths, err := afero.Glob(fs.fs, abs("*"))
	if err != nil {
		return nil, errors.Wrap(err, "list")
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, path.Base(p))
	}
	sort.Strings(names)
	return names, nil
}

func (fs aferoFs) Delete(fname string) error {
	return errors.Wrapf(fs.fs.Remove(abs(fname)), "delete %s", fname)
}

func (fs aferoFs) Rename(src, dst string) error {
	return errors.Wrapf(fs.fs.Rename(abs(src), abs(dst)), "rename %s to %s", src, dst)
}

func (fs aferoFs) GetStats() Stats {
	return *fs.Stats
}

// IsTmp reports whether fname is a partially written file.
func IsTmp(fname string) bool {
	return strings.HasSuffix(fname, ".tmp")
}

func deleteTmpFiles(fs afero.Fs) error {
	tmpFiles, err := afero.Glob(fs, abs("*.tmp"))
	if err != nil {
		return err
	}
	for _, n := range tmpFiles {
		if err := fs.Remove(n); err != nil {
			return err
		}
	}
	return nil
}

// FromAfero creates an fs.Filesys from any Afero file system.
//
// This implementation will use absolute filenames for the stored files; use
// an afero.BasePathFs to make sure all files are created within a
// particular directory.
//
// Deletes all files named *.tmp, which are left behind by writes that were
// interrupted before being renamed into place.
func FromAfero(fs afero.Fs) (Filesys, error) {
	if err := deleteTmpFiles(fs); err != nil {
		return nil, errors.Wrap(err, "recover tmp files")
	}
	return aferoFs{fs: afero.Afero{Fs: fs}, Stats: new(Stats)}, nil
}

// MemFs creates an in-memory Filesys
func MemFs() Filesys {
	filesys, err := FromAfero(afero.NewMemMapFs())
	if err != nil {
		// an empty in-memory file system has nothing to recover
		panic(err)
	}
	return filesys
}

// DirFs creates a Filesys backed by the OS, using basedir.
//
// Creates basedir if it does not exist.
func DirFs(basedir string) (Filesys, error) {
	fs := afero.NewOsFs()
	if err := fs.MkdirAll(basedir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create %s", basedir)
	}
	baseFs := afero.NewBasePathFs(fs, basedir)
	return FromAfero(baseFs)
}
