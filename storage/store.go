// Package storage writes synthesized audio artifacts to S3 and returns a
// publicly fetchable locator. Artifacts are write-once: nothing here ever
// updates or deletes an object.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type putClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes audio artifacts into one bucket.
type Store struct {
	client putClient
	bucket string
	region string
}

func New(ctx context.Context, region, bucket string) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Store{client: s3.NewFromConfig(awsCfg), bucket: bucket, region: region}, nil
}

// NewWithClient injects an S3 client, for tests.
func NewWithClient(client putClient, bucket, region string) *Store {
	return &Store{client: client, bucket: bucket, region: region}
}

// ObjectKey builds a collision-free key for one turn's audio: the request
// id is unique per invocation and the nanosecond timestamp keeps even a
// reused id from colliding.
func ObjectKey(requestID string, now time.Time) string {
	return fmt.Sprintf("calls/%s/%d.mp3", requestID, now.UnixNano())
}

// Put writes the audio under key and returns its public URL.
func (s *Store) Put(ctx context.Context, key string, audio []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(audio),
		ContentType: aws.String("audio/mpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}
