package iomanifest

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/tmforge/tmmigrate/pkg/config"
	"github.com/tmforge/tmmigrate/pkg/manifest"
	"github.com/tmforge/tmmigrate/pkg/migrate"
)

type s3Store struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3 creates a store that keeps the manifest as one S3 object.
// Credentials come from the default AWS chain (env vars, shared config,
// instance roles). Extra options are applied to the S3 client.
func NewS3(
	ctx context.Context,
	cfg config.S3Config,
	opts ...func(*s3.Options),
) (migrate.ManifestStore, error) {
	if cfg.Bucket == "" {
		return nil, ConnectionError("s3", "", errors.New("bucket is not set"))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, ConnectionError("s3", cfg.Bucket, err)
	}

	optFns := []func(*s3.Options){
		func(o *s3.Options) {
			o.UsePathStyle = cfg.PathStyle
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		},
	}
	optFns = append(optFns, opts...)
	return &s3Store{
		client: s3.NewFromConfig(awsCfg, optFns...),
		bucket: cfg.Bucket,
		key:    cfg.Key,
	}, nil
}

func (s *s3Store) Load(ctx context.Context) (*manifest.Manifest, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// Save replaces the object. S3 writes are atomic per object.
func (s *s3Store) Save(ctx context.Context, m *manifest.Manifest) error {
	data, err := encode(m)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/yaml"),
	})
	return err
}

func (s *s3Store) Close() error { return nil }
