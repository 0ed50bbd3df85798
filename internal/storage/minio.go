package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/invhealth/internal/config"
	"github.com/andresuchdata/invhealth/internal/domain"
	"github.com/andresuchdata/invhealth/internal/export"
)

const reportFile = "report.json"

// MinioArchive implements ReportArchive on any S3-compatible bucket.
type MinioArchive struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioArchive builds an archive from the storage settings.
func NewMinioArchive(cfg config.StorageConfig) (*MinioArchive, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("storage credentials must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket must be provided")
	}

	endpoint, secure, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating storage client: %w", err)
	}

	return &MinioArchive{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (a *MinioArchive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("error creating bucket %s: %w", a.bucket, err)
	}
	log.Info().Str("bucket", a.bucket).Msg("Created report bucket")
	return nil
}

func (a *MinioArchive) ArchiveReport(ctx context.Context, runID string, report *domain.AuditReport) (*ArchivedReport, error) {
	files, err := bundle(report)
	if err != nil {
		return nil, err
	}

	archived := &ArchivedReport{Bucket: a.bucket}
	for _, name := range []string{reportFile, "issues.csv", "stockout_risks.csv"} {
		data := files[name]
		key := objectKey(a.prefix, report.Summary.AuditDate, runID, name)

		_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: contentType(name),
		})
		if err != nil {
			return nil, fmt.Errorf("error uploading %s: %w", key, err)
		}
		archived.Keys = append(archived.Keys, key)
	}

	log.Debug().
		Str("run_id", runID).
		Strs("keys", archived.Keys).
		Msg("Archived audit report")
	return archived, nil
}

func bundle(report *domain.AuditReport) (map[string][]byte, error) {
	files, err := export.Files(report)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("error encoding report: %w", err)
	}
	files[reportFile] = data
	return files, nil
}

func contentType(name string) string {
	if strings.HasSuffix(name, ".csv") {
		return "text/csv"
	}
	return "application/json"
}
