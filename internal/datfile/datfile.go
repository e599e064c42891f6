// Package datfile moves DAT containers between disk and memory. The container
// engine itself never touches the filesystem.
package datfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/pkg/dat"
)

// ErrTooLarge is returned for files that cannot be addressed with 32-bit offsets.
var ErrTooLarge = errors.New("datfile: file exceeds the 32-bit offset space")

const maxFileSize = 1<<32 - 1

// ReadFile returns the contents of path. The file is mapped read-only and copied
// out; if mmap is unavailable it falls back to ReadAt.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 > maxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, size64)
	}
	size := int(size64)
	if size == 0 {
		return []byte{}, nil
	}

	mapped, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		out := make([]byte, size)
		copy(out, mapped)
		_ = unix.Munmap(mapped)
		return out, nil
	}
	return readAllAt(f, size)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

// Load reads path and decodes it as a container.
func Load(path string, opts ...dat.Option) (*dat.Container, error) {
	buf, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := dat.Load(buf, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// SaveOptions controls Save.
type SaveOptions struct {
	// Backup keeps the previous file as path + ".bak".
	Backup bool
}

// Save serializes c to path. The bytes are written to a temporary file in the same
// directory, synced, then renamed over path.
func Save(path string, c *dat.Container, opts SaveOptions) error {
	return WriteFile(path, c.Bytes(), opts)
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte, opts SaveOptions) error {
	dir := filepath.Dir(path)
	mode := os.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
		if opts.Backup {
			if err := copyFile(path, path+".bak", mode); err != nil {
				return fmt.Errorf("backup %s: %w", path, err)
			}
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, mode)
}
