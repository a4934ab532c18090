package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	markdownContentType = "text/markdown; charset=utf-8"
	downloadURLTTL      = 15 * time.Minute
)

var ErrEmptyDocument = errors.New("no document to archive")

type Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UsePathStyle bool
	Prefix       string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type objectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Archive keeps generated documents in an S3 compatible bucket.
type Archive struct {
	bucket    string
	prefix    string
	putter    objectPutter
	presigner objectPresigner
	now       func() time.Time
}

func NewArchive(cfg Config) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 credentials are required")
	}

	options := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		options.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	client := s3.New(options)
	return newArchive(cfg, client, s3.NewPresignClient(client)), nil
}

func newArchive(cfg Config, putter objectPutter, presigner objectPresigner) *Archive {
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "gdd"
	}
	return &Archive{
		bucket:    cfg.Bucket,
		prefix:    prefix,
		putter:    putter,
		presigner: presigner,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Store uploads a Markdown document and returns its object key.
func (a *Archive) Store(ctx context.Context, userID, documentID string, document []byte) (string, error) {
	if len(document) == 0 {
		return "", ErrEmptyDocument
	}

	key := a.objectKey(userID, documentID)
	_, err := a.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(document),
		ContentType: aws.String(markdownContentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}
	return key, nil
}

// DownloadURL returns a short-lived presigned GET URL for key.
func (a *Archive) DownloadURL(ctx context.Context, key string) (string, error) {
	req, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(downloadURLTTL))
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return req.URL, nil
}

func (a *Archive) objectKey(userID, documentID string) string {
	now := a.now()
	return path.Join(
		a.prefix,
		sanitizeSegment(userID),
		fmt.Sprintf("%04d/%02d/%02d", now.Year(), now.Month(), now.Day()),
		sanitizeSegment(documentID)+".md",
	)
}

// sanitizeSegment keeps ids from escaping their key segment.
func sanitizeSegment(s string) string {
	s = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(strings.TrimSpace(s))
	if s == "" {
		return "_"
	}
	return s
}
