package chunkstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config carries settings for an S3-compatible backend such as MinIO.
type S3Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3Store keeps chunk ciphertext as objects keyed
// attachments/<id>/<index>. Object-per-chunk keeps uploads resumable and
// deletions a simple prefix sweep.
type S3Store struct {
	client *s3.Client
	bucket string
}

func NewS3Store(ctx context.Context, c S3Config) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.RootUser,
			c.RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Store{client: client, bucket: c.Bucket}, nil
}

func objectKey(attachmentID string, index int) string {
	return fmt.Sprintf("attachments/%s/%06d", attachmentID, index)
}

func (s *S3Store) Put(ctx context.Context, attachmentID string, index int, ciphertext []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(attachmentID, index)),
		Body:   bytes.NewReader(ciphertext),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s/%d: %w", attachmentID, index, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, attachmentID string, index int) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(attachmentID, index)),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%d: %w", attachmentID, index, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s/%d: %w", attachmentID, index, err)
	}
	return b, nil
}

func (s *S3Store) DeleteAll(ctx context.Context, attachmentID string) error {
	prefix := fmt.Sprintf("attachments/%s/", attachmentID)

	var token *string
	for {
		list, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return fmt.Errorf("s3 list %s: %w", attachmentID, err)
		}
		if len(list.Contents) == 0 {
			return nil
		}

		objects := make([]types.ObjectIdentifier, 0, len(list.Contents))
		for _, o := range list.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: o.Key})
		}
		_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects},
		})
		if err != nil {
			return fmt.Errorf("s3 delete %s: %w", attachmentID, err)
		}

		if list.IsTruncated == nil || !*list.IsTruncated {
			return nil
		}
		token = list.NextContinuationToken
	}
}
