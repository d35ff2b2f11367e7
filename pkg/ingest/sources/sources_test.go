package sources

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	mferrors "github.com/mesflow/mesflow/pkg/errors"
)

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		in          string
		bucket, key string
		wantErr     bool
	}{
		{"s3://plant-exports/2024/march.csv", "plant-exports", "2024/march.csv", false},
		{"s3://bucket/k", "bucket", "k", false},
		{"s3://bucket", "", "", true},
		{"s3:///key", "", "", true},
		{"/tmp/file.csv", "", "", true},
	}

	for _, tt := range tests {
		b, k, err := ParseS3URL(tt.in)
		if (err != nil) != tt.wantErr || b != tt.bucket || k != tt.key {
			t.Errorf("ParseS3URL(%q) = %q, %q, %v", tt.in, b, k, err)
		}
	}
}

type fakeS3 struct {
	body   string
	bucket string
	key    string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = aws.ToString(in.Bucket), aws.ToString(in.Key)
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3Source_Open(t *testing.T) {
	fake := &fakeS3{body: "Job;Unit\nA_P_E;U1\n"}
	src := newS3Source("exports", "day.csv", 0, fake)

	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if string(data) != fake.body {
		t.Errorf("body = %q", data)
	}
	if fake.bucket != "exports" || fake.key != "day.csv" {
		t.Errorf("requested %s/%s", fake.bucket, fake.key)
	}
	if src.Name() != "s3://exports/day.csv" {
		t.Errorf("Name() = %q", src.Name())
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.csv")
	if err := os.WriteFile(path, []byte("Job\nX\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	if src.Size() != 6 {
		t.Errorf("Size() = %d", src.Size())
	}

	_, err = NewFileSource(filepath.Join(dir, "missing.csv"))
	if !mferrors.IsCode(err, mferrors.CodeFileNotFound) {
		t.Errorf("missing file error = %v", err)
	}

	_, err = NewFileSource(dir)
	if !mferrors.IsCode(err, mferrors.CodeSource) {
		t.Errorf("directory error = %v", err)
	}
}

func TestResolve(t *testing.T) {
	src, err := Resolve(context.Background(), "-", S3Config{})
	if err != nil || src.Name() != "-" {
		t.Errorf("Resolve(-) = %v, %v", src, err)
	}

	_, err = Resolve(context.Background(), "s3://only-bucket", S3Config{})
	if !mferrors.IsCode(err, mferrors.CodeSource) {
		t.Errorf("Resolve(bad s3) err = %v", err)
	}
}
