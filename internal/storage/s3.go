package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3Client reads source documents from and writes export results to S3.
type S3Client struct {
	client     *s3.Client
	uploader   *manager.Uploader
	bucketName string
}

// FileMetadata represents metadata about a stored file
type FileMetadata struct {
	OriginalName     string            `json:"original_name"`
	ContentType      string            `json:"content_type"`
	Size             int64             `json:"size"`
	Encrypted        bool              `json:"encrypted"`
	Metadata         map[string]string `json:"metadata"`
	EncryptionFormat string            `json:"encryption_format,omitempty"`
}

// NewS3Client creates a client using the default AWS credential chain.
func NewS3Client(ctx context.Context, bucketName string) (*S3Client, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	cli := s3.NewFromConfig(cfg)
	return &S3Client{
		client:     cli,
		uploader:   manager.NewUploader(cli),
		bucketName: bucketName,
	}, nil
}

// Bucket returns the bucket name.
func (s *S3Client) Bucket() string { return s.bucketName }

// Ping checks that the bucket is reachable.
func (s *S3Client) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucketName)})
	return err
}

// Download fetches key and opens its encryption envelope if it has one.
func (s *S3Client) Download(ctx context.Context, key, password string) ([]byte, *FileMetadata, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	raw, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read S3 object: %w", err)
	}

	meta := &FileMetadata{Metadata: map[string]string{}, Size: int64(len(raw))}
	for k, v := range result.Metadata {
		meta.Metadata[strings.ToLower(k)] = v
	}
	meta.OriginalName = meta.Metadata["name"]
	if result.ContentType != nil {
		meta.ContentType = *result.ContentType
	}

	data, format, err := Open(raw, password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt %s: %w", key, err)
	}
	meta.Encrypted = format != ""
	meta.EncryptionFormat = format

	log.Info().
		Str("bucket", s.bucketName).
		Str("key", key).
		Str("encryption_format", format).
		Str("original_name", meta.OriginalName).
		Int("size", len(data)).
		Msg("downloaded file from S3")
	return data, meta, nil
}

// Upload stores data under key, sealed with password when one is given.
func (s *S3Client) Upload(ctx context.Context, key string, data []byte, password string, meta *FileMetadata) error {
	body := data
	s3Meta := map[string]string{}
	if meta != nil {
		for k, v := range meta.Metadata {
			s3Meta[k] = v
		}
		if meta.OriginalName != "" {
			s3Meta["name"] = meta.OriginalName
		}
	}
	if password != "" {
		sealed, err := Seal(data, password)
		if err != nil {
			return fmt.Errorf("failed to encrypt data: %w", err)
		}
		body = sealed
		s3Meta["encrypted"] = "true"
		s3Meta["encryption-format"] = FormatGCM
	}

	input := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucketName),
		Key:      aws.String(key),
		Body:     bytes.NewReader(body),
		Metadata: s3Meta,
	}
	if meta != nil && meta.ContentType != "" {
		input.ContentType = aws.String(meta.ContentType)
	}
	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("S3 upload failed")
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	log.Info().Str("key", key).Str("location", out.Location).Bool("encrypted", password != "").Int("size", len(body)).Msg("uploaded file to S3")
	return nil
}

// ResultKey returns the object key for an export result.
func ResultKey(prefix, jobID, name string) string {
	parts := []string{}
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, "results", jobID, name)
	return strings.Join(parts, "/")
}
