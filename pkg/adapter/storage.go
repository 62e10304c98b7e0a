package adapter

import (
	"context"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

// Object describes one stored blob as returned by List
type Object struct {
	Key     string
	Size    int64
	Updated time.Time
}

// Storage is the interface for raw document blob storage
type Storage interface {
	// Put returns a writer to save raw document bytes to storage
	Put(ctx context.Context, key string) (io.WriteCloser, error)
	// Get loads raw document bytes from storage
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns all objects whose key starts with prefix
	List(ctx context.Context, prefix string) ([]*Object, error)
	// Delete removes an object
	Delete(ctx context.Context, key string) error
}

// storageClient implements Storage interface using Cloud Storage
type storageClient struct {
	bucketName string
	client     *storage.Client
}

// NewStorage creates a new Cloud Storage client
func NewStorage(ctx context.Context, bucketName string) (Storage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &storageClient{
		bucketName: bucketName,
		client:     client,
	}, nil
}

func (s *storageClient) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	bucket := s.client.Bucket(s.bucketName)
	obj := bucket.Object(key)
	writer := obj.NewWriter(ctx)
	return writer, nil
}

func (s *storageClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	bucket := s.client.Bucket(s.bucketName)
	obj := bucket.Object(key)
	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.Value("key", key))
	}

	return reader, nil
}

func (s *storageClient) List(ctx context.Context, prefix string) ([]*Object, error) {
	bucket := s.client.Bucket(s.bucketName)
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	var objects []*Object
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list objects", goerr.Value("prefix", prefix))
		}
		objects = append(objects, &Object{
			Key:     attrs.Name,
			Size:    attrs.Size,
			Updated: attrs.Updated,
		})
	}

	return objects, nil
}

func (s *storageClient) Delete(ctx context.Context, key string) error {
	bucket := s.client.Bucket(s.bucketName)
	if err := bucket.Object(key).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete object", goerr.Value("key", key))
	}
	return nil
}
