package store

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
)

// S3Backend writes/reads artifacts against an S3-compatible bucket.
// Retries on transient errors are bounded by MaxRetries; the AWS SDK's
// own built-in retryer handles the actual backoff.
type S3Backend struct {
	Client     *s3.Client
	Uploader   *manager.Uploader
	Bucket     string
	Timeout    time.Duration
	MaxRetries int
}

func NewS3Backend(client *s3.Client, bucket string, timeout time.Duration, maxRetries int) *S3Backend {
	return &S3Backend{
		Client:     client,
		Uploader:   manager.NewUploader(client),
		Bucket:     bucket,
		Timeout:    timeout,
		MaxRetries: maxRetries,
	}
}

func (s *S3Backend) Put(key string, body []byte, reducedRedundancy bool) error {
	class := types.StorageClassStandard
	if reducedRedundancy {
		class = types.StorageClassReducedRedundancy
	}

	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
		_, err := s.Uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:       aws.String(s.Bucket),
			Key:          aws.String(key),
			Body:         bytes.NewReader(body),
			StorageClass: class,
		})
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return errors.Wrapf(lastErr, "store: s3 put %s after %d attempts", key, s.MaxRetries+1)
}

func (s *S3Backend) Get(key string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "store: s3 get %s", key)
	}
	return out.Body, nil
}

func (s *S3Backend) GetConditional(key, etag string) (io.ReadCloser, string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	input := &s3.GetObjectInput{Bucket: aws.String(s.Bucket), Key: aws.String(key)}
	if etag != "" {
		input.IfNoneMatch = aws.String(etag)
	}
	out, err := s.Client.GetObject(ctx, input)
	if err != nil {
		var notModified *types.NotModified
		if errors.As(err, &notModified) {
			return nil, etag, true, nil
		}
		return nil, "", false, errors.Wrapf(err, "store: s3 conditional get %s", key)
	}
	newEtag := ""
	if out.ETag != nil {
		newEtag = *out.ETag
	}
	return out.Body, newEtag, false, nil
}

func (s *S3Backend) Head(key string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	out, err := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, errors.Wrapf(err, "store: s3 head %s", key)
	}
	if out.ContentLength == nil {
		return 0, nil
	}
	return *out.ContentLength, nil
}
