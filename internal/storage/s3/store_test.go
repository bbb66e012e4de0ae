package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/intentsql/intentsql/internal/storage"
)

func TestGetUsesPrefixAndNormalizedKey(t *testing.T) {
	fake := &fakeClient{}
	store, err := NewWithClient("bucket-a", "datasets/prod", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	reader, err := store.Get(context.Background(), "/scores/part-0.parquet")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	_ = reader.Close()
	if fake.lastBucket != "bucket-a" {
		t.Fatalf("bucket = %q", fake.lastBucket)
	}
	if fake.lastKey != "datasets/prod/scores/part-0.parquet" {
		t.Fatalf("key = %q", fake.lastKey)
	}
}

func TestGetRejectsPathTraversal(t *testing.T) {
	store, err := NewWithClient("bucket-a", "", &fakeClient{})
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if _, err := store.Get(context.Background(), "../secrets.txt"); err == nil {
		t.Fatal("expected path traversal validation error")
	}
}

func TestGetMapsNotFound(t *testing.T) {
	store, err := NewWithClient("bucket-a", "", &fakeClient{getErr: storage.ErrObjectNotFound})
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if _, err := store.Get(context.Background(), "missing.parquet"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Get() error = %v, want ErrObjectNotFound", err)
	}
}

func TestListStripsStorePrefix(t *testing.T) {
	fake := &fakeClient{objects: []storage.ObjectInfo{
		{Key: "datasets/prod/scores/part-0.parquet", Size: 10},
		{Key: "datasets/prod/scores/part-1.parquet", Size: 11},
	}}
	store, err := NewWithClient("bucket-a", "datasets/prod", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	objects, err := store.List(context.Background(), "scores/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if fake.lastPrefix != "datasets/prod/scores/" {
		t.Fatalf("prefix = %q", fake.lastPrefix)
	}
	if len(objects) != 2 || objects[0].Key != "scores/part-0.parquet" {
		t.Fatalf("List() = %+v", objects)
	}

	if _, err := store.List(context.Background(), ""); err != nil {
		t.Fatalf("List(root) error = %v", err)
	}
	if fake.lastPrefix != "datasets/prod/" {
		t.Fatalf("root prefix = %q", fake.lastPrefix)
	}
}

func TestHealthCheckFailsForMissingBucket(t *testing.T) {
	store, err := NewWithClient("bucket-a", "", &fakeClient{bucketExists: false})
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if err := store.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected missing bucket error")
	}
}

func TestParseEndpoint(t *testing.T) {
	endpoint, secure, err := parseEndpoint("https://minio.example.com", false)
	if err != nil {
		t.Fatalf("parseEndpoint() error = %v", err)
	}
	if endpoint != "minio.example.com" || !secure {
		t.Fatalf("endpoint/secure = %q/%v", endpoint, secure)
	}
	endpoint, secure, err = parseEndpoint("localhost:9000", false)
	if err != nil || endpoint != "localhost:9000" || secure {
		t.Fatalf("parseEndpoint(bare) = %q/%v/%v", endpoint, secure, err)
	}
}

type fakeClient struct {
	lastBucket   string
	lastKey      string
	lastPrefix   string
	objects      []storage.ObjectInfo
	getErr       error
	bucketExists bool
}

func (f *fakeClient) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	f.lastBucket = bucket
	f.lastKey = key
	if f.getErr != nil {
		return nil, f.getErr
	}
	return io.NopCloser(strings.NewReader(key)), nil
}

func (f *fakeClient) List(_ context.Context, _, prefix string) ([]storage.ObjectInfo, error) {
	f.lastPrefix = prefix
	return append([]storage.ObjectInfo(nil), f.objects...), nil
}

func (f *fakeClient) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, nil
}
