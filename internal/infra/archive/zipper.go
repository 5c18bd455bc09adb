// Package archive bundles a run's result files into one zip.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type ZipCreator struct{}

func NewZipCreator() *ZipCreator {
	return &ZipCreator{}
}

// CreateZip stores each file under its base name. A partial archive is
// removed when any file fails.
func (z *ZipCreator) CreateZip(ctx context.Context, filePaths []string, outputPath string) (err error) {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create zip file: %w", err)
	}
	zipWriter := zip.NewWriter(zipFile)
	defer func() {
		err = errors.Join(err, zipWriter.Close(), zipFile.Close())
		if err != nil {
			_ = os.Remove(outputPath)
		}
	}()

	seen := make(map[string]string, len(filePaths))
	for _, fp := range filePaths {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		name := filepath.Base(fp)
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("zip entry %s: both %s and %s", name, prev, fp)
		}
		seen[name] = fp

		if err := addFileToZip(zipWriter, fp, name); err != nil {
			return fmt.Errorf("add %s to zip: %w", fp, err)
		}
	}
	return nil
}

func addFileToZip(zw *zip.Writer, filename, name string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(writer, file)
	return err
}
