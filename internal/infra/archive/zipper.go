package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

type ZipCreator struct{}

func NewZipCreator() *ZipCreator {
	return &ZipCreator{}
}

func (z *ZipCreator) Ext() string {
	return ".zip"
}

func (z *ZipCreator) CreateArchive(ctx context.Context, srcDir, destBase string) (path string, err error) {
	path = destBase + z.Ext()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	zipFile, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create zip file: %w", err)
	}
	defer func() { err = multierr.Append(err, zipFile.Close()) }()

	zipWriter := zip.NewWriter(zipFile)
	defer func() { err = multierr.Append(err, zipWriter.Close()) }()

	err = walk(ctx, srcDir, func(e entry) error {
		if err := addFileToZip(zipWriter, e); err != nil {
			return fmt.Errorf("add %s to zip: %w", e.rel, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func addFileToZip(zw *zip.Writer, e entry) error {
	header, err := zip.FileInfoHeader(e.info)
	if err != nil {
		return err
	}

	header.Name = e.rel
	if e.info.IsDir() {
		header.Name += "/"
		_, err = zw.CreateHeader(header)
		return err
	}
	header.Method = zip.Deflate

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	file, err := os.Open(e.path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(writer, file)
	return err
}
