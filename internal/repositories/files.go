package repositories

import (
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic replaces path with what write produces. The content goes to a
// temp file in the same directory which is renamed over path, all under an
// exclusive lock on path+".lock" so two runs never interleave.
func WriteAtomic(path string, write func(w io.Writer) error) error {

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create directory")
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return errors.Wrapf(err, "lock %s", path)
	}
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}

	return errors.Wrap(os.Rename(tmpName, path), "replace file")
}

func copyFile(src, dst string) error {

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
