// Package storage archives accepted registration agreements to S3 so the
// signed record survives independently of the database.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// FolderAgreements is the S3 prefix for archived agreement snapshots.
const FolderAgreements = "agreements"

// S3Config holds S3 client configuration.
type S3Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	AgreementsBucket     string
	PresignExpireMinutes int
}

// S3 uploads agreement archives and issues presigned download URLs.
type S3 struct {
	client   *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client. Static credentials from config take precedence;
// otherwise the default AWS credential chain applies.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	} else if logger != nil {
		logger.Warn("S3 client using default credential chain")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3{
		client:   client,
		presign:  s3.NewPresignClient(client),
		uploader: manager.NewUploader(client),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// AgreementKey builds the object key for a submission's agreement snapshot.
func AgreementKey(eventID, submissionID string) string {
	return fmt.Sprintf("%s/%s/%s.json", FolderAgreements, eventID, submissionID)
}

// UploadAgreement streams an agreement snapshot to the agreements bucket and
// returns the object key.
func (s *S3) UploadAgreement(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AgreementsBucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("agreement archived", zap.String("key", key))
	}
	return key, nil
}

// PresignDownload returns a time-limited download URL for an archived
// agreement, for admin dashboard retrieval.
func (s *S3) PresignDownload(ctx context.Context, key string) (string, error) {
	expire := time.Duration(s.cfg.PresignExpireMinutes) * time.Minute
	if expire <= 0 {
		expire = 15 * time.Minute
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.AgreementsBucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expire))
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}
	return req.URL, nil
}
