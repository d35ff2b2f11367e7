// Package sources provides the inputs a pipeline run can read from.
package sources

import (
	"context"
	"io"
	"os"
	"strings"

	mferrors "github.com/mesflow/mesflow/pkg/errors"
	"github.com/mesflow/mesflow/pkg/ingest"
)

// FileSource reads a local file.
type FileSource struct {
	path string
	size int64
}

// NewFileSource creates a source for path, failing if it does not exist.
func NewFileSource(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mferrors.FileNotFound(path)
		}
		return nil, mferrors.Wrap(err, mferrors.CodeSource, "stat failed").WithContext("path", path)
	}
	if info.IsDir() {
		return nil, mferrors.New(mferrors.CodeSource, "path is a directory").WithContext("path", path)
	}
	return &FileSource{path: path, size: info.Size()}, nil
}

func (f *FileSource) Name() string { return f.path }
func (f *FileSource) Size() int64  { return f.size }

// Open returns a reader for the file.
func (f *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, mferrors.Wrap(err, mferrors.CodeSource, "open failed").WithContext("path", f.path)
	}
	return fh, nil
}

// StdinSource reads standard input. Its name carries no extension, so the
// format is sniffed from content.
type StdinSource struct {
	r io.Reader
}

func NewStdinSource() *StdinSource { return &StdinSource{r: os.Stdin} }

func (s *StdinSource) Name() string { return "-" }
func (s *StdinSource) Size() int64  { return -1 }

func (s *StdinSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(s.r), nil
}

// Sizer is implemented by sources that know their length up front.
type Sizer interface {
	Size() int64
}

// Resolve maps a CLI location to a source: "-" is stdin, "s3://bucket/key"
// an S3 object, anything else a local path.
func Resolve(ctx context.Context, location string, s3cfg S3Config) (ingest.Source, error) {
	switch {
	case location == "-":
		return NewStdinSource(), nil
	case strings.HasPrefix(location, "s3://"):
		return NewS3Source(ctx, location, s3cfg)
	default:
		return NewFileSource(location)
	}
}
