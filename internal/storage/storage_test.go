package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/invhealth/internal/config"
	"github.com/andresuchdata/invhealth/internal/domain"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "audits/2025-03-01/run-1/report.json", objectKey("audits", "2025-03-01", "run-1", "report.json"))
	assert.Equal(t, "audits/2025-03-01/run-1/issues.csv", objectKey("/audits/", "2025-03-01", "run-1", "issues.csv"))
	assert.Equal(t, "undated/run-1/report.json", objectKey("", "", "run-1", "report.json"))
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in      string
		useSSL  bool
		host    string
		secure  bool
		wantErr bool
	}{
		{in: "minio:9000", useSSL: false, host: "minio:9000"},
		{in: "s3.example.com", useSSL: true, host: "s3.example.com", secure: true},
		{in: "https://s3.example.com/", useSSL: false, host: "s3.example.com", secure: true},
		{in: "http://localhost:9000", useSSL: true, host: "localhost:9000"},
		{in: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, secure, err := normalizeEndpoint(tt.in, tt.useSSL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.secure, secure)
		})
	}
}

func TestNewMinioArchive_Validation(t *testing.T) {
	_, err := NewMinioArchive(config.StorageConfig{Endpoint: "minio:9000", Bucket: "b"})
	assert.Error(t, err)

	_, err = NewMinioArchive(config.StorageConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "s"})
	assert.Error(t, err)

	archive, err := NewMinioArchive(config.StorageConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "s", Bucket: "b", Prefix: "audits"})
	require.NoError(t, err)
	assert.Equal(t, "b", archive.bucket)
}

func TestBundle(t *testing.T) {
	report := &domain.AuditReport{
		Summary: domain.AuditSummary{HealthScore: 97, Status: domain.StatusHealthy, AuditDate: "2025-03-01"},
		Issues:  domain.IssueList{domain.OrphanSKUFifo{SKU: "C", Lot: "L9"}},
	}

	files, err := bundle(report)
	require.NoError(t, err)
	require.Len(t, files, 3)

	var decoded domain.AuditReport
	require.NoError(t, json.Unmarshal(files[reportFile], &decoded))
	assert.Equal(t, 97, decoded.Summary.HealthScore)
	assert.Contains(t, string(files["issues.csv"]), "ORPHAN_SKU_FIFO,C,L9")
	assert.Equal(t, "text/csv", contentType("issues.csv"))
	assert.Equal(t, "application/json", contentType(reportFile))
}

func TestNoopArchive(t *testing.T) {
	archived, err := NewNoopArchive().ArchiveReport(context.Background(), "run-1", &domain.AuditReport{})
	require.NoError(t, err)
	assert.Empty(t, archived.Keys)
}
