package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/invoiceclient/internal/filex"
)

// FileSaver stores a downloaded body under name and returns where it went.
type FileSaver interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// DirSaver writes downloads into Dir, creating it on first use. Existing
// files with the same name are overwritten.
type DirSaver struct {
	Dir string
}

func (d DirSaver) Save(_ context.Context, name string, r io.Reader) (string, error) {
	dir, err := filex.EnsureDir(d.Dir)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, filex.SafeName(name, defaultDownloadName))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
