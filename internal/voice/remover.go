package voice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileRemover deletes audio files under a root directory. Contents are
// overwritten with zeros and synced before the file is unlinked.
type FileRemover struct {
	root string
}

func NewFileRemover(root string) (*FileRemover, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve voice storage root: %w", err)
	}
	return &FileRemover{root: abs}, nil
}

// Remove deletes the artifact at locator. A missing file is reported as
// existed=false with no error.
func (r *FileRemover) Remove(ctx context.Context, locator string) (bool, error) {
	if locator == "" {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := r.resolve(locator)
	if err != nil {
		return false, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("open voice artifact: %w", err)
	}
	if err := zeroFill(f); err != nil {
		_ = f.Close()
		return true, fmt.Errorf("overwrite voice artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return true, fmt.Errorf("close voice artifact: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return true, fmt.Errorf("remove voice artifact: %w", err)
	}
	return true, nil
}

func (r *FileRemover) resolve(locator string) (string, error) {
	path := filepath.Join(r.root, filepath.Clean("/"+locator))
	if path != r.root && !strings.HasPrefix(path, r.root+string(filepath.Separator)) {
		return "", fmt.Errorf("voice artifact locator escapes storage root")
	}
	return path, nil
}

func zeroFill(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	zeros := make([]byte, 32*1024)
	remaining := info.Size()
	for remaining > 0 {
		n := int64(len(zeros))
		if remaining < n {
			n = remaining
		}
		if _, err := f.Write(zeros[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return f.Sync()
}
