package archive

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
	"github.com/tier4/automan-annotation-archiver/internal/domain/port"
)

const (
	FormatGzTar = "gztar"
	FormatZip   = "zip"
)

// New returns the archiver for a format name.
func New(format string) (port.Archiver, error) {
	switch format {
	case "", FormatGzTar:
		return NewTarGzCreator(), nil
	case FormatZip:
		return NewZipCreator(), nil
	}
	return nil, fmt.Errorf("%w: unknown archive format %q", entity.ErrConfiguration, format)
}

type entry struct {
	path string
	rel  string
	info fs.FileInfo
}

// walk lists srcDir in lexical order with slash separated paths relative to srcDir.
func walk(ctx context.Context, srcDir string, fn func(entry) error) error {
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(entry{path: path, rel: filepath.ToSlash(rel), info: info})
	})
}
