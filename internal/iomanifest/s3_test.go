package iomanifest_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmforge/tmmigrate/internal/iomanifest"
	"github.com/tmforge/tmmigrate/pkg/config"
)

// fakeS3 keeps objects by request path and answers GET and PUT.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch req.Method {
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		f.objects[req.URL.Path] = body
		f.puts++
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Etag": {`"etag"`}},
			Body:       io.NopCloser(bytes.NewReader(nil)),
		}, nil
	case http.MethodGet:
		body, ok := f.objects[req.URL.Path]
		if !ok {
			msg := `<?xml version="1.0" encoding="UTF-8"?>` +
				`<Error><Code>NoSuchKey</Code>` +
				`<Message>The specified key does not exist.</Message></Error>`
			return &http.Response{
				StatusCode: http.StatusNotFound,
				Header:     http.Header{"Content-Type": {"application/xml"}},
				Body:       io.NopCloser(strings.NewReader(msg)),
			}, nil
		}
		return &http.Response{
			StatusCode:    http.StatusOK,
			Header:        http.Header{"Content-Type": {"application/yaml"}},
			ContentLength: int64(len(body)),
			Body:          io.NopCloser(bytes.NewReader(body)),
		}, nil
	}
	return &http.Response{
		StatusCode: http.StatusMethodNotAllowed,
		Body:       io.NopCloser(bytes.NewReader(nil)),
	}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: make(map[string][]byte)}
	cfg := config.S3Config{
		Bucket:    "migrations",
		Key:       "tmmigrate/manifest.yaml",
		Region:    "us-east-1",
		Endpoint:  "https://s3.test.local",
		PathStyle: true,
	}
	store, err := iomanifest.NewS3(ctx, cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: fake}
		o.Credentials = credentials.NewStaticCredentialsProvider(
			"AKIA", "SECRET", "")
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	require.NoError(t, err)
	defer store.Close()

	m, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, m)

	orig := sample(t)
	require.NoError(t, store.Save(ctx, orig))
	assert.Equal(t, 1, fake.puts)
	assert.Contains(t, fake.objects, "/migrations/tmmigrate/manifest.yaml")

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, orig.RunID, got.RunID)
	assert.Equal(t, orig.Maps, got.Maps)
	assert.Equal(t, orig.Deferred, got.Deferred)
}

func TestS3StoreNoBucket(t *testing.T) {
	_, err := iomanifest.NewS3(context.Background(), config.S3Config{})
	assert.Error(t, err)
}
