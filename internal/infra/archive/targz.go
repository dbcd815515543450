package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/multierr"
)

// TarGzCreator writes gzip compressed tarballs.
type TarGzCreator struct{}

func NewTarGzCreator() *TarGzCreator {
	return &TarGzCreator{}
}

func (t *TarGzCreator) Ext() string {
	return ".tar.gz"
}

func (t *TarGzCreator) CreateArchive(ctx context.Context, srcDir, destBase string) (path string, err error) {
	path = destBase + t.Ext()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create tarball: %w", err)
	}
	defer func() { err = multierr.Append(err, file.Close()) }()

	gz := gzip.NewWriter(file)
	defer func() { err = multierr.Append(err, gz.Close()) }()

	tw := tar.NewWriter(gz)
	defer func() { err = multierr.Append(err, tw.Close()) }()

	err = walk(ctx, srcDir, func(e entry) error {
		if err := addFileToTar(tw, e); err != nil {
			return fmt.Errorf("add %s to tarball: %w", e.rel, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func addFileToTar(tw *tar.Writer, e entry) error {
	header, err := tar.FileInfoHeader(e.info, "")
	if err != nil {
		return err
	}
	header.Name = e.rel
	if e.info.IsDir() {
		header.Name += "/"
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	if !e.info.Mode().IsRegular() {
		return nil
	}

	file, err := os.Open(e.path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(tw, file)
	return err
}
