package fsaccess

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client is the subset of *s3.Client this package depends on.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3 is a read-only Access implementation backed by an S3-compatible
// object store, for "s3://bucket/key" locations. Writes are never needed
// by this core: inputs are read, outputs are staged to local disk before
// being handed back to the workflow layer.
type S3 struct {
	client S3Client
	ctx    context.Context
}

func NewS3(ctx context.Context, client S3Client) *S3 {
	return &S3{client: client, ctx: ctx}
}

func splitS3(location string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(location, "s3://") {
		return "", "", false
	}
	rest := strings.TrimPrefix(location, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return parts[0], "", true
	}
	return parts[0], parts[1], true
}

func (s *S3) Exists(location string) bool {
	bucket, key, ok := splitS3(location)
	if !ok {
		return false
	}
	_, err := s.client.HeadObject(s.ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &key})
	return err == nil
}

func (s *S3) IsFile(location string) bool { return s.Exists(location) }

func (s *S3) IsDir(location string) bool {
	bucket, key, ok := splitS3(location)
	if !ok {
		return false
	}
	prefix := strings.TrimSuffix(key, "/") + "/"
	out, err := s.client.ListObjectsV2(s.ctx, &s3.ListObjectsV2Input{Bucket: &bucket, Prefix: &prefix})
	return err == nil && len(out.Contents) > 0
}

func (s *S3) Size(location string) (int64, error) {
	bucket, key, ok := splitS3(location)
	if !ok {
		return 0, fmt.Errorf("fsaccess: not an s3 location: %s", location)
	}
	out, err := s.client.HeadObject(s.ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return 0, err
	}
	if out.ContentLength == nil {
		return 0, nil
	}
	return *out.ContentLength, nil
}

func (s *S3) Open(location string) (io.ReadCloser, error) {
	bucket, key, ok := splitS3(location)
	if !ok {
		return nil, fmt.Errorf("fsaccess: not an s3 location: %s", location)
	}
	out, err := s.client.GetObject(s.ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (s *S3) Glob(pattern string) ([]string, error) {
	return nil, fmt.Errorf("fsaccess: glob is not supported against s3 locations")
}

func (s *S3) Join(a, b string) string {
	return strings.TrimSuffix(a, "/") + "/" + strings.TrimPrefix(b, "/")
}

func (s *S3) ListDir(location string) ([]string, error) {
	bucket, key, ok := splitS3(location)
	if !ok {
		return nil, fmt.Errorf("fsaccess: not an s3 location: %s", location)
	}
	prefix := strings.TrimSuffix(key, "/") + "/"
	out, err := s.client.ListObjectsV2(s.ctx, &s3.ListObjectsV2Input{Bucket: &bucket, Prefix: &prefix})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		names = append(names, strings.TrimPrefix(*obj.Key, prefix))
	}
	return names, nil
}

// Composite routes Access calls to a scheme-specific backend, falling
// back to Local for bare paths and "file://" locations. It lets callers
// treat s3:// and local locations uniformly through a single Access.
type Composite struct {
	local   *Local
	schemes map[string]Access // e.g. "s3" -> *S3
}

// NewComposite builds a Composite Access over schemes (keyed by URI
// scheme, e.g. "s3"), falling back to local filesystem access otherwise.
func NewComposite(schemes map[string]Access) *Composite {
	return &Composite{local: NewLocal(), schemes: schemes}
}

func (c *Composite) backend(location string) Access {
	for scheme, access := range c.schemes {
		if strings.HasPrefix(location, scheme+"://") {
			return access
		}
	}
	return c.local
}

func (c *Composite) Exists(location string) bool              { return c.backend(location).Exists(location) }
func (c *Composite) IsFile(location string) bool               { return c.backend(location).IsFile(location) }
func (c *Composite) IsDir(location string) bool                { return c.backend(location).IsDir(location) }
func (c *Composite) Size(location string) (int64, error)       { return c.backend(location).Size(location) }
func (c *Composite) Open(location string) (io.ReadCloser, error) {
	return c.backend(location).Open(location)
}
func (c *Composite) Glob(pattern string) ([]string, error) { return c.backend(pattern).Glob(pattern) }
func (c *Composite) Join(a, b string) string               { return c.backend(a).Join(a, b) }
func (c *Composite) ListDir(location string) ([]string, error) {
	return c.backend(location).ListDir(location)
}
