package objectstore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	invoiceDefaultBucket  = "invoicedesk"
	invoiceDefaultRegion  = "ap-south-1"
	invoiceDefaultBaseURL = "https://invoicedesk.s3.ap-south-1.amazonaws.com/"
)

func invoiceBucket() string {
	if b := strings.TrimSpace(os.Getenv("INVOICE_S3_BUCKET")); b != "" {
		return b
	}
	return invoiceDefaultBucket
}

func invoiceRegion() string {
	if r := strings.TrimSpace(os.Getenv("INVOICE_S3_REGION")); r != "" {
		return r
	}
	return invoiceDefaultRegion
}

func invoiceBaseURL() string {
	if u := strings.TrimSpace(os.Getenv("INVOICE_S3_BASE_URL")); u != "" {
		u = strings.TrimSuffix(u, "/")
		return u + "/"
	}
	return invoiceDefaultBaseURL
}

// IsS3Enabled reads INVOICE_S3_ENABLED to decide whether original files
// and PDFs go to S3. Defaults to true when unset; the in-memory store
// backs the service otherwise.
func IsS3Enabled() bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv("INVOICE_S3_ENABLED")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes"
}

// S3Store implements Storage on an S3 bucket.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

func NewS3Store(ctx context.Context) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(invoiceRegion()))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    invoiceBucket(),
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, path string, data []byte, contentType string, onProgress ProgressFunc) (string, error) {
	if contentType == "" {
		contentType = detectContentType(data)
	}
	body := newProgressReader(data, onProgress)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3 (bucket %s, key %s): %w", s.bucket, path, err)
	}
	if onProgress != nil {
		onProgress(100)
	}
	return path, nil
}

func (s *S3Store) SignedURL(ctx context.Context, path string, expiresIn time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", fmt.Errorf("presign get (bucket %s, key %s): %w", s.bucket, path, err)
	}
	return req.URL, nil
}

func (s *S3Store) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("delete from s3 (bucket %s, key %s): %w", s.bucket, path, err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	var token *string
	for {
		resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list s3 prefix %s: %w", prefix, err)
		}
		for _, obj := range resp.Contents {
			out = append(out, ObjectInfo{
				Path:         aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
		if resp.IsTruncated == nil || !*resp.IsTruncated {
			break
		}
		token = resp.NextContinuationToken
	}
	return out, nil
}

// PublicURL joins the configured base URL with a key. Only meaningful for
// buckets fronted by a public distribution; signed URLs are the normal
// viewing path.
func (s *S3Store) PublicURL(path string) string {
	return invoiceBaseURL() + path
}
