package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/andresuchdata/invhealth/internal/domain"
)

// ArchivedReport points at the objects written for one run.
type ArchivedReport struct {
	Bucket string   `json:"bucket"`
	Keys   []string `json:"keys"`
}

// ReportArchive keeps a durable copy of every completed audit report.
type ReportArchive interface {
	ArchiveReport(ctx context.Context, runID string, report *domain.AuditReport) (*ArchivedReport, error)
}

type noopArchive struct{}

// NewNoopArchive returns an archive that stores nothing.
func NewNoopArchive() ReportArchive {
	return noopArchive{}
}

func (noopArchive) ArchiveReport(context.Context, string, *domain.AuditReport) (*ArchivedReport, error) {
	return &ArchivedReport{}, nil
}

// objectKey lays reports out as {prefix}/{audit date}/{run id}/{file}.
func objectKey(prefix, auditDate, runID, file string) string {
	if strings.TrimSpace(auditDate) == "" {
		auditDate = "undated"
	}
	return path.Join(strings.Trim(prefix, "/"), auditDate, runID, file)
}

// normalizeEndpoint strips any scheme; an explicit scheme overrides useSSL.
func normalizeEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint, useSSL = strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint, useSSL = strings.TrimPrefix(endpoint, "http://"), false
	}
	endpoint = strings.TrimRight(strings.TrimPrefix(endpoint, "//"), "/")
	if endpoint == "" {
		return "", false, fmt.Errorf("storage endpoint must be provided")
	}
	return endpoint, useSSL, nil
}
