// Package fileutil abstracts image and model file access over viant/afs so
// that local paths and object-store URLs (e.g. s3://) behave identically.
package fileutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/option"
	"github.com/viant/afs/option/content"
	_ "github.com/viant/afsc/s3"
)

var fileSystem = afs.New()

func ReadFileBytes(ctx context.Context, filename string) ([]byte, error) {
	file, err := fileSystem.OpenURL(ctx, filename)
	if err != nil {
		return nil, err
	}
	defer func(file io.Closer) {
		err = errors.Join(err, file.Close())
	}(file)

	buf := &bytes.Buffer{}
	_, readErr := io.Copy(buf, file)
	if readErr != nil {
		return nil, readErr
	}
	return buf.Bytes(), err
}

func FileExists(ctx context.Context, filename string) (bool, error) {
	return fileSystem.Exists(ctx, filename)
}

// WriteFileBytes replaces filename with the given bytes. An existing file is
// deleted first because some afs backends refuse in-place overwrite.
func WriteFileBytes(ctx context.Context, filename string, data []byte, contentType string) error {
	writer, err := newFileWriter(ctx, filename, contentType)
	if err != nil {
		return err
	}
	_, writeErr := writer.Write(data)
	return errors.Join(writeErr, writer.Close())
}

func newFileWriter(ctx context.Context, filename string, contentType string) (io.WriteCloser, error) {
	exists, err := fileSystem.Exists(ctx, filename)
	if err != nil {
		return nil, err
	}
	if exists {
		if err := fileSystem.Delete(ctx, filename); err != nil {
			return nil, err
		}
	}
	if contentType != "" {
		return fileSystem.NewWriter(ctx, filename, 0o644, content.NewMeta(content.Type, contentType), option.NewSkipChecksum(true))
	}
	return fileSystem.NewWriter(ctx, filename, 0o644, option.NewSkipChecksum(true))
}

func GetPathType(path string) string {
	if strings.HasPrefix(path, "s3://") {
		return "S3"
	}
	return "os"
}

// PathJoinSafe wrapper around filepath.Join to ensure that paths are correctly constructed
// if the path is a normal OS path, just use filepath.Join
// if the path is S3, trim any trailing slashes and construct it manually from the components
// so that double slashes (e.g. s3://) are preserved.
func PathJoinSafe(elem ...string) string {
	var path string

	switch GetPathType(elem[0]) {
	case "S3":
		basePath := strings.TrimSuffix(elem[0], "/")
		path = basePath + string(filepath.Separator) + filepath.Join(elem[1:]...)
	default:
		path = filepath.Join(elem...)
	}
	return path
}
